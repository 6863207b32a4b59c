package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotelfront/internal/backend"
	"hotelfront/internal/domain"
	"hotelfront/internal/events"
	"hotelfront/internal/metrics"
	"hotelfront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrResolutionFailed is returned when the profile of a new credential cannot be fetched.
	// Token and role are cleared by then.
	ErrResolutionFailed = errors.New("session: profile resolution failed")
	// ErrSuperseded is returned when a newer login or logout overtook the call.
	ErrSuperseded  = errors.New("session: superseded by a newer login or logout")
	ErrNotLoggedIn = errors.New("session: not logged in")
)

// Failure reasons recorded when a session is forcibly logged out.
const (
	ReasonExpired     = "expired"
	ReasonRejected    = "rejected"
	ReasonUnreachable = "unreachable"
	ReasonStorage     = "storage"
)

type State int

const (
	Unauthenticated State = iota
	Resolving
	Authenticated
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is a consistent view of the session at one instant.
type Snapshot struct {
	ID    string
	State State
	Role  models.Role
	User  *models.UserProfile
}

// IsAuthenticated is true once a profile is loaded.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

// IsAdmin is derived from the loaded profile, never from the persisted role.
func (s Snapshot) IsAdmin() bool { return s.User.IsAdmin() }

// Loading is true while a profile resolution is in flight.
func (s Snapshot) Loading() bool { return s.State == Resolving }

// Store owns the authentication lifecycle of one browser session.
// All methods are safe for concurrent use.
type Store struct {
	id     string
	creds  domain.CredentialStore
	api    *backend.Client
	events domain.EventPublisher
	logger zerolog.Logger
	now    func() time.Time

	initOnce sync.Once

	mu       sync.Mutex
	state    State
	token    string
	role     models.Role
	user     *models.UserProfile
	gen      uint64
	done     chan struct{}
	lastSeen time.Time

	checkout     *models.Checkout
	confirmation string
	matches      []models.RoomMatch
}

type Option func(*Store)

func WithLogger(l *zerolog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.With().Str("component", "session").Logger()
		}
	}
}

func WithEvents(p domain.EventPublisher) Option {
	return func(s *Store) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// NewStore builds an unauthenticated session. Call Init to restore a persisted credential.
func NewStore(id string, creds domain.CredentialStore, client *backend.Client, opts ...Option) *Store {
	s := &Store{
		id:     id,
		creds:  creds,
		logger: zerolog.Nop(),
		now:    time.Now,
		done:   closedChan(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.api = client.WithTokenSource(s)
	s.lastSeen = s.now()
	return s
}

func (s *Store) ID() string { return s.id }

// Token implements backend.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// API returns the backend client bound to this session's token.
func (s *Store) API() *backend.Client { return s.api }

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{ID: s.id, State: s.state, Role: s.role, User: s.user}
}

// Init restores the persisted credential, if any, and starts resolving its profile
// in the background. Without a credential the session settles as unauthenticated
// and no network call is made. Only the first call has an effect.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		cred, err := s.creds.Load(ctx, s.id)
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", s.id).Msg("Failed to load persisted credential")
		}
		if err != nil || cred.IsZero() {
			return
		}

		s.mu.Lock()
		if s.gen != 0 {
			// a login or logout already ran
			s.mu.Unlock()
			return
		}
		s.gen++
		gen, done := s.gen, make(chan struct{})
		s.token, s.role, s.state, s.done = cred.Token, cred.Role, Resolving, done
		s.mu.Unlock()

		go func() {
			_ = s.resolve(context.WithoutCancel(ctx), gen, cred.Token, done)
		}()
	})
}

// Wait blocks until no resolution is in flight and returns the settled snapshot.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		done := s.done
		if s.state != Resolving {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Login persists token and role, then fetches the profile. On any failure both
// are cleared again and ErrResolutionFailed is returned.
func (s *Store) Login(ctx context.Context, token string, role models.Role) error {
	s.initOnce.Do(func() {})

	s.mu.Lock()
	s.gen++
	gen, done := s.gen, make(chan struct{})
	s.token, s.role, s.user, s.state, s.done = token, role, nil, Resolving, done
	err := s.creds.Save(context.WithoutCancel(ctx), s.id, models.Credential{Token: token, Role: role})
	s.mu.Unlock()

	if err != nil {
		s.fail(ctx, gen, ReasonStorage, err)
		close(done)
		return fmt.Errorf("%w: persist credential: %v", ErrResolutionFailed, err)
	}
	return s.resolve(ctx, gen, token, done)
}

// Logout clears token, role and profile unconditionally. No network call is made.
// The returned error only reports a failure to clear persisted storage.
func (s *Store) Logout(ctx context.Context) error {
	s.initOnce.Do(func() {})

	s.mu.Lock()
	wasUser := s.user
	s.gen++
	s.clearLocked()
	err := s.creds.Clear(context.WithoutCancel(ctx), s.id)
	s.mu.Unlock()

	payload := events.SessionEventPayload{SessionID: s.id}
	if wasUser != nil {
		payload.UserID = wasUser.ID
	}
	s.publish(events.EventSessionLogout, payload)
	metrics.IncSession(events.EventSessionLogout)

	if err != nil {
		s.logger.Error().Err(err).Str("session_id", s.id).Msg("Failed to clear persisted credential")
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Refresh re-fetches the profile of an authenticated session. A failure logs the session out.
func (s *Store) Refresh(ctx context.Context) (*models.UserProfile, error) {
	s.mu.Lock()
	if s.state != Authenticated {
		s.mu.Unlock()
		return nil, ErrNotLoggedIn
	}
	gen, token := s.gen, s.token
	s.mu.Unlock()

	profile, reason, err := s.fetchProfile(ctx, token)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err == nil {
		s.user = profile
		s.mu.Unlock()
		return profile, nil
	}
	s.mu.Unlock()

	s.fail(ctx, gen, reason, err)
	return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
}

func (s *Store) resolve(ctx context.Context, gen uint64, token string, done chan struct{}) error {
	defer close(done)

	profile, reason, err := s.fetchProfile(ctx, token)
	if err != nil {
		if !s.fail(ctx, gen, reason, err) {
			return ErrSuperseded
		}
		return fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug().Str("session_id", s.id).Msg("Discarding stale profile resolution")
		return ErrSuperseded
	}
	s.user = profile
	s.state = Authenticated
	role := s.role
	s.mu.Unlock()

	s.logger.Info().Str("session_id", s.id).Int64("user_id", profile.ID).Str("role", string(profile.Role)).Msg("Session authenticated")
	s.publish(events.EventSessionLogin, events.SessionEventPayload{SessionID: s.id, UserID: profile.ID, Role: string(role)})
	metrics.IncSession(events.EventSessionLogin)
	return nil
}

// fetchProfile skips the call when the token is a JWT whose exp has passed.
func (s *Store) fetchProfile(ctx context.Context, token string) (*models.UserProfile, string, error) {
	if tokenExpired(token, s.now()) {
		return nil, ReasonExpired, errors.New("token expired")
	}
	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		reason := ReasonRejected
		if be, ok := backend.AsError(err); ok && be.Transport() {
			reason = ReasonUnreachable
		}
		return nil, reason, err
	}
	return profile, "", nil
}

// fail forces a logout for generation gen. It returns false if gen is stale.
func (s *Store) fail(ctx context.Context, gen uint64, reason string, cause error) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.clearLocked()
	clearErr := s.creds.Clear(context.WithoutCancel(ctx), s.id)
	s.mu.Unlock()

	if clearErr != nil {
		s.logger.Error().Err(clearErr).Str("session_id", s.id).Msg("Failed to clear persisted credential")
	}
	s.logger.Warn().Err(cause).Str("session_id", s.id).Str("reason", reason).Msg("Session credential dropped")
	s.publish(events.EventSessionExpired, events.SessionEventPayload{SessionID: s.id, Reason: reason})
	metrics.IncSession(events.EventSessionExpired)
	return true
}

func (s *Store) clearLocked() {
	s.token = ""
	s.role = ""
	s.user = nil
	s.state = Unauthenticated
	s.done = closedChan()
	s.checkout = nil
	s.confirmation = ""
	s.matches = nil
}

func (s *Store) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Event handler failed")
	}
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Touch records activity for the idle janitor.
func (s *Store) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Store) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SetCheckout remembers the booking being paid for.
func (s *Store) SetCheckout(c models.Checkout) {
	s.mu.Lock()
	s.checkout = &c
	s.mu.Unlock()
}

func (s *Store) Checkout() (models.Checkout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		return models.Checkout{}, false
	}
	return *s.checkout, true
}

// CompleteCheckout drops the pending checkout and keeps the confirmation code for the success page.
func (s *Store) CompleteCheckout(code string) {
	s.mu.Lock()
	s.checkout = nil
	s.confirmation = code
	s.mu.Unlock()
}

func (s *Store) Confirmation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmation
}

func (s *Store) SetMatches(m []models.RoomMatch) {
	s.mu.Lock()
	s.matches = m
	s.mu.Unlock()
}

// Matches returns the last accepted recommendation result.
func (s *Store) Matches() []models.RoomMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches
}
