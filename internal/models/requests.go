package models

type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// BookingRequest is the stay form submitted from the room view.
type BookingRequest struct {
	CheckInDate   string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOutDate  string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
	NumOfAdults   int    `json:"numOfAdults" validate:"gte=1"`
	NumOfChildren int    `json:"numOfChildren" validate:"gte=0"`
}

// RoomForm holds the text fields of the admin room form; the photo travels separately.
type RoomForm struct {
	RoomType        string  `json:"roomType" validate:"required"`
	RoomPrice       float64 `json:"roomPrice" validate:"gt=0"`
	RoomDescription string  `json:"roomDescription"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type RecommendRequest struct {
	Query string `json:"query" validate:"required"`
}

type PaymentIntentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}
