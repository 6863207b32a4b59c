package models

// Room is a catalog item.
type Room struct {
	ID              int64     `json:"id"`
	RoomType        string    `json:"roomType"`
	RoomPrice       float64   `json:"roomPrice"`
	RoomPhotoURL    string    `json:"roomPhotoUrl"`
	RoomDescription string    `json:"roomDescription"`
	Bookings        []Booking `json:"bookings,omitempty"`
}

// Recommendation is one entry of the concierge's JSON-encoded answer.
type Recommendation struct {
	RoomID     int64   `json:"roomId"`
	MatchScore float64 `json:"matchScore"`
	Reason     string  `json:"reason"`
}

// RoomMatch is a Recommendation joined with the catalog entry it points at.
type RoomMatch struct {
	Room   Room    `json:"room"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}
