package repository

import (
	"context"
	"sync"
	"time"

	"hotelfront/internal/domain"
	"hotelfront/internal/models"

	"github.com/rs/zerolog"
)

// Store is a credential store that can also throttle logins.
type Store interface {
	domain.CredentialStore
	domain.LoginThrottle
}

// FailoverCredentialStore serves from primary until it fails, then from fallback.
// While primary is down it is probed again after delays taken from the retry policy.
// Clears issued during an outage are replayed on recovery so that a logged out
// session is never restored from the primary.
type FailoverCredentialStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger
	policy   RetryPolicy
	now      func() time.Time

	mu        sync.Mutex
	down      bool
	attempts  int
	nextProbe time.Time
	pending   map[string]struct{}
}

func NewFailoverCredentialStore(primary, fallback Store, policy RetryPolicy, logger *zerolog.Logger) *FailoverCredentialStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverCredentialStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		policy:   policy,
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
}

// usePrimary reports whether the next call should go to primary. While primary is
// down and a probe is due, pending clears are replayed first; if that fails the
// probe counts as failed and the call is served by fallback.
func (r *FailoverCredentialStore) usePrimary(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Before(r.nextProbe) {
		return false
	}
	for sid := range r.pending {
		if err := r.primary.Clear(ctx, sid); err != nil {
			r.attempts++
			r.nextProbe = r.now().Add(r.policy.NextDelay(r.attempts))
			return false
		}
		delete(r.pending, sid)
	}
	return true
}

func (r *FailoverCredentialStore) markDown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	r.nextProbe = r.now().Add(r.policy.NextDelay(r.attempts))
	if !r.down {
		r.logger.Error().Err(err).Msg("Primary credential store failed, falling back to memory")
	}
	r.down = true
}

func (r *FailoverCredentialStore) markUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return
	}
	r.down = false
	r.attempts = 0
	r.logger.Info().Msg("Primary credential store recovered")
}

func (r *FailoverCredentialStore) Down() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *FailoverCredentialStore) Load(ctx context.Context, sessionID string) (models.Credential, error) {
	if r.usePrimary(ctx) {
		cred, err := r.primary.Load(ctx, sessionID)
		if err == nil {
			r.markUp()
			if !cred.IsZero() {
				return cred, nil
			}
			// may have been saved during an outage
			return r.fallback.Load(ctx, sessionID)
		}
		r.markDown(err)
	}
	return r.fallback.Load(ctx, sessionID)
}

func (r *FailoverCredentialStore) Save(ctx context.Context, sessionID string, cred models.Credential) error {
	if r.usePrimary(ctx) {
		err := r.primary.Save(ctx, sessionID, cred)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Save(ctx, sessionID, cred)
}

func (r *FailoverCredentialStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.fallback.Clear(ctx, sessionID); err != nil {
		return err
	}
	if r.usePrimary(ctx) {
		err := r.primary.Clear(ctx, sessionID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	r.mu.Lock()
	r.pending[sessionID] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *FailoverCredentialStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary(ctx) {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
