package models

// Credential is the bearer token and role pair identifying the current session.
type Credential struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// IsZero reports whether no token is held.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// UserProfile is the identity record resolved with a Credential.
type UserProfile struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Role        Role      `json:"role"`
	Bookings    []Booking `json:"bookings,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
