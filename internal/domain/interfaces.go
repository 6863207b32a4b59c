package domain

import (
	"context"
	"time"

	"hotelfront/internal/models"
)

// CredentialStore persists the token and role of a session. Both are written and cleared together.
// Loading a session that holds nothing returns the zero Credential and a nil error.
type CredentialStore interface {
	Load(ctx context.Context, sessionID string) (models.Credential, error)
	Save(ctx context.Context, sessionID string, cred models.Credential) error
	Clear(ctx context.Context, sessionID string) error
}

// LoginThrottle counts attempts per key inside a fixed window.
type LoginThrottle interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}
