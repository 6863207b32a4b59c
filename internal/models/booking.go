package models

// Booking links a Room and a UserProfile. The confirmation code is assigned by the backend.
type Booking struct {
	ID                      int64        `json:"id"`
	CheckInDate             string       `json:"checkInDate"`
	CheckOutDate            string       `json:"checkOutDate"`
	NumOfAdults             int          `json:"numOfAdults"`
	NumOfChildren           int          `json:"numOfChildren"`
	TotalNumOfGuest         int          `json:"totalNumOfGuest"`
	BookingConfirmationCode string       `json:"bookingConfirmationCode"`
	User                    *UserProfile `json:"user,omitempty"`
	Room                    *Room        `json:"room,omitempty"`
}

// Checkout is a booking awaiting payment: it travels from the room view to the payment view.
type Checkout struct {
	RoomID    int64          `json:"roomId"`
	UserID    int64          `json:"userId"`
	RoomPrice float64        `json:"roomPrice"`
	Booking   BookingRequest `json:"bookingDetails"`
}
