package service

import (
	"hotelfront/internal/backend"
	"hotelfront/internal/session"
)

// clientFor returns the session's token-bound client, or the anonymous one without a session.
func clientFor(base *backend.Client, sess *session.Store) *backend.Client {
	if sess == nil {
		return base
	}
	return sess.API()
}
