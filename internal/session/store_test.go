package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotelfront/internal/backend"
	"hotelfront/internal/events"
	"hotelfront/internal/models"
	"hotelfront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileBackend answers the profile endpoint per bearer token.
type profileBackend struct {
	srv   *httptest.Server
	calls atomic.Int32

	mu      sync.Mutex
	replies map[string]string
	gates   map[string]chan struct{}
}

func newProfileBackend(t *testing.T) *profileBackend {
	t.Helper()
	b := &profileBackend{replies: map[string]string{}, gates: map[string]chan struct{}{}}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		auth := r.Header.Get("Authorization")

		b.mu.Lock()
		reply, ok := b.replies[auth]
		gate := b.gates[auth]
		b.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if !ok {
			reply = `{"statusCode":401,"message":"Unauthorized"}`
		}
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *profileBackend) reply(token, body string) {
	b.mu.Lock()
	b.replies["Bearer "+token] = body
	b.mu.Unlock()
}

func (b *profileBackend) gate(token string) chan struct{} {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates["Bearer "+token] = ch
	b.mu.Unlock()
	return ch
}

const (
	userProfile  = `{"statusCode":200,"user":{"id":7,"name":"Ann","email":"a@b.com","role":"USER"}}`
	adminProfile = `{"statusCode":200,"user":{"id":1,"name":"Root","email":"r@b.com","role":"ADMIN"}}`
)

func newTestStore(t *testing.T, b *profileBackend, creds *repository.MemoryCredentialStore, opts ...Option) *Store {
	t.Helper()
	return NewStore("sid", creds, backend.NewClient(b.srv.URL), opts...)
}

func waitSettled(t *testing.T, s *Store) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestLogin_Success(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("t1", userProfile)
	creds := repository.NewMemoryCredentialStore(0)
	s := newTestStore(t, b, creds)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "t1", models.RoleUser))

	snap := s.Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.True(t, snap.IsAuthenticated())
	assert.False(t, snap.IsAdmin())
	assert.False(t, snap.Loading())
	assert.Equal(t, int64(7), snap.User.ID)

	persisted, err := creds.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, models.Credential{Token: "t1", Role: models.RoleUser}, persisted)
}

func TestLogin_AdminDerivedFromProfile(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("t1", adminProfile)
	s := newTestStore(t, b, repository.NewMemoryCredentialStore(0))

	// the persisted role does not decide admin access
	require.NoError(t, s.Login(context.Background(), "t1", models.RoleUser))
	assert.True(t, s.Snapshot().IsAdmin())
}

func TestLogin_ProfileFailureClearsCredential(t *testing.T) {
	b := newProfileBackend(t)
	creds := repository.NewMemoryCredentialStore(0)
	bus := events.NewEventBus()
	var reasons []string
	bus.Subscribe(func(e *events.Event) error {
		var p events.SessionEventPayload
		require.NoError(t, e.Decode(&p))
		reasons = append(reasons, p.Reason)
		return nil
	}, events.EventSessionExpired)

	s := newTestStore(t, b, creds, WithEvents(bus))
	ctx := context.Background()

	err := s.Login(ctx, "bad", models.RoleUser)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResolutionFailed))

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assert.Nil(t, snap.User)
	assert.Equal(t, models.Role(""), snap.Role)
	assert.Equal(t, "", s.Token())

	persisted, _ := creds.Load(ctx, "sid")
	assert.True(t, persisted.IsZero())
	assert.Equal(t, []string{ReasonRejected}, reasons)
}

func TestLogin_UnreachableBackend(t *testing.T) {
	b := newProfileBackend(t)
	b.srv.Close()
	s := newTestStore(t, b, repository.NewMemoryCredentialStore(0))

	err := s.Login(context.Background(), "t1", models.RoleUser)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)
}

func TestInit_NoCredentialMakesNoCall(t *testing.T) {
	b := newProfileBackend(t)
	s := newTestStore(t, b, repository.NewMemoryCredentialStore(0))

	s.Init(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assert.False(t, snap.Loading())
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestInit_RestoresPersistedCredential(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("t2", adminProfile)
	gate := b.gate("t2")
	creds := repository.NewMemoryCredentialStore(0)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "sid", models.Credential{Token: "t2", Role: models.RoleAdmin}))

	s := newTestStore(t, b, creds)
	s.Init(ctx)

	snap := s.Snapshot()
	assert.True(t, snap.Loading())
	assert.False(t, snap.IsAuthenticated())

	close(gate)
	snap = waitSettled(t, s)
	assert.Equal(t, Authenticated, snap.State)
	assert.True(t, snap.IsAdmin())
}

func TestInit_FailedRestoreClearsCredential(t *testing.T) {
	b := newProfileBackend(t)
	creds := repository.NewMemoryCredentialStore(0)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "sid", models.Credential{Token: "revoked", Role: models.RoleUser}))

	s := newTestStore(t, b, creds)
	s.Init(ctx)

	snap := waitSettled(t, s)
	assert.Equal(t, Unauthenticated, snap.State)
	persisted, _ := creds.Load(ctx, "sid")
	assert.True(t, persisted.IsZero())
}

func TestInit_ExpiredTokenSkipsNetwork(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("never", userProfile)
	creds := repository.NewMemoryCredentialStore(0)
	ctx := context.Background()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@b.com",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, creds.Save(ctx, "sid", models.Credential{Token: token, Role: models.RoleUser}))

	bus := events.NewEventBus()
	var reason atomic.Value
	bus.Subscribe(func(e *events.Event) error {
		var p events.SessionEventPayload
		_ = e.Decode(&p)
		reason.Store(p.Reason)
		return nil
	}, events.EventSessionExpired)

	s := newTestStore(t, b, creds, WithEvents(bus))
	s.Init(ctx)

	snap := waitSettled(t, s)
	assert.Equal(t, Unauthenticated, snap.State)
	assert.Equal(t, int32(0), b.calls.Load())
	assert.Equal(t, ReasonExpired, reason.Load())
}

func TestLogout_ClearsEverythingWithoutNetwork(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("t1", userProfile)
	creds := repository.NewMemoryCredentialStore(0)
	s := newTestStore(t, b, creds)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "t1", models.RoleUser))
	s.SetCheckout(models.Checkout{RoomID: 3, UserID: 7, RoomPrice: 100})
	calls := b.calls.Load()

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, calls, b.calls.Load())

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assert.Nil(t, snap.User)
	assert.Equal(t, "", s.Token())
	_, ok := s.Checkout()
	assert.False(t, ok)

	persisted, _ := creds.Load(ctx, "sid")
	assert.True(t, persisted.IsZero())
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("old", userProfile)
	gate := b.gate("old")
	creds := repository.NewMemoryCredentialStore(0)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "sid", models.Credential{Token: "old", Role: models.RoleUser}))

	s := newTestStore(t, b, creds)
	s.Init(ctx)
	require.True(t, s.Snapshot().Loading())

	require.NoError(t, s.Logout(ctx))
	close(gate)

	// the old resolution finishes after the logout and must not resurrect the session
	assert.Eventually(t, func() bool { return b.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assert.Nil(t, snap.User)
	persisted, _ := creds.Load(ctx, "sid")
	assert.True(t, persisted.IsZero())
}

func TestNewerLoginWins(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("first", userProfile)
	b.reply("second", adminProfile)
	gate := b.gate("first")
	creds := repository.NewMemoryCredentialStore(0)
	s := newTestStore(t, b, creds)
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Login(ctx, "first", models.RoleUser) }()
	assert.Eventually(t, func() bool { return b.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Login(ctx, "second", models.RoleAdmin))
	close(gate)

	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	snap := s.Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, int64(1), snap.User.ID)
	assert.Equal(t, "second", s.Token())

	persisted, _ := creds.Load(ctx, "sid")
	assert.Equal(t, "second", persisted.Token)
}

func TestRefresh(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("t1", userProfile)
	s := newTestStore(t, b, repository.NewMemoryCredentialStore(0))
	ctx := context.Background()

	_, err := s.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, s.Login(ctx, "t1", models.RoleUser))
	b.reply("t1", `{"statusCode":200,"user":{"id":7,"name":"Ann B","role":"USER","bookings":[{"id":4,"bookingConfirmationCode":"XYZ"}]}}`)

	u, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.Name)
	require.Len(t, s.Snapshot().User.Bookings, 1)

	b.reply("t1", `{"statusCode":401,"message":"Token expired"}`)
	_, err = s.Refresh(ctx)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)
}

func TestCheckoutLifecycle(t *testing.T) {
	b := newProfileBackend(t)
	s := newTestStore(t, b, repository.NewMemoryCredentialStore(0))

	_, ok := s.Checkout()
	assert.False(t, ok)

	s.SetCheckout(models.Checkout{RoomID: 2, UserID: 7, RoomPrice: 99})
	c, ok := s.Checkout()
	require.True(t, ok)
	assert.Equal(t, int64(2), c.RoomID)

	s.CompleteCheckout("ABC123")
	_, ok = s.Checkout()
	assert.False(t, ok)
	assert.Equal(t, "ABC123", s.Confirmation())
}

func TestWait_ContextCancelled(t *testing.T) {
	b := newProfileBackend(t)
	b.reply("slow", userProfile)
	gate := b.gate("slow")
	defer close(gate)
	creds := repository.NewMemoryCredentialStore(0)
	require.NoError(t, creds.Save(context.Background(), "sid", models.Credential{Token: "slow", Role: models.RoleUser}))

	s := newTestStore(t, b, creds)
	s.Init(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.Loading())
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	assert.True(t, tokenExpired(sign(jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), now))
	assert.False(t, tokenExpired(sign(jwt.MapClaims{"exp": now.Add(time.Minute).Unix()}), now))
	assert.False(t, tokenExpired(sign(jwt.MapClaims{"sub": "x"}), now))
	assert.False(t, tokenExpired("opaque-token", now))
}
