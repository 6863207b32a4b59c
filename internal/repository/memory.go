package repository

import (
	"context"
	"sync"
	"time"

	"hotelfront/internal/models"
)

type MemoryCredentialStore struct {
	mu          sync.Mutex
	credentials map[string]memoryCredential
	rateLimits  map[string]*rateLimitEntry
	ttl         time.Duration
	now         func() time.Time
}

type memoryCredential struct {
	cred      models.Credential
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// NewMemoryCredentialStore keeps credentials in process memory. A zero ttl keeps them until cleared.
func NewMemoryCredentialStore(ttl time.Duration) *MemoryCredentialStore {
	return &MemoryCredentialStore{
		credentials: make(map[string]memoryCredential),
		rateLimits:  make(map[string]*rateLimitEntry),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (r *MemoryCredentialStore) Load(ctx context.Context, sessionID string) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.credentials[sessionID]
	if !ok {
		return models.Credential{}, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.credentials, sessionID)
		return models.Credential{}, nil
	}
	return entry.cred, nil
}

func (r *MemoryCredentialStore) Save(ctx context.Context, sessionID string, cred models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryCredential{cred: cred}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.credentials[sessionID] = entry
	return nil
}

func (r *MemoryCredentialStore) Clear(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.credentials, sessionID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryCredentialStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
