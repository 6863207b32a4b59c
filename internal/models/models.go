package models

// Envelope is carried by every backend response, even on HTTP-level success.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type MessageResponse struct {
	Envelope
}

type LoginResponse struct {
	Envelope
	Token          string `json:"token"`
	Role           Role   `json:"role"`
	ExpirationTime string `json:"expirationTime,omitempty"`
}

type ProfileResponse struct {
	Envelope
	User *UserProfile `json:"user"`
}

type RoomResponse struct {
	Envelope
	Room *Room `json:"room"`
}

type RoomListResponse struct {
	Envelope
	RoomList []Room `json:"roomList"`
}

type BookingResponse struct {
	Envelope
	Booking *Booking `json:"booking"`
}

type BookingListResponse struct {
	Envelope
	BookingList []Booking `json:"bookingList"`
}

type BookRoomResponse struct {
	Envelope
	BookingConfirmationCode string `json:"bookingConfirmationCode"`
}

type UserListResponse struct {
	Envelope
	UserList []UserProfile `json:"userList"`
}

type PaymentIntentResponse struct {
	Envelope
	ClientSecret string `json:"clientSecret"`
}

// RecommendationList is the document encoded inside the recommend endpoint's message.
type RecommendationList struct {
	Recommendations []Recommendation `json:"recommendations"`
}
