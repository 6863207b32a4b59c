package models

// Role tags issued by the backend together with the bearer token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the roles the backend issues.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

const (
	// StatusOK is the embedded statusCode the backend uses for success.
	StatusOK = 200

	// DateLayout is the wire format of stay dates.
	DateLayout = "2006-01-02"

	// DefaultFeaturedRooms is how many rooms the home view shows.
	DefaultFeaturedRooms = 3

	// DefaultChatFallback is shown when the concierge answers with an empty message.
	DefaultChatFallback = "I'm sorry, I couldn't process that request."
)
