package session

import (
	"context"
	"sync"
	"time"

	"hotelfront/internal/backend"
	"hotelfront/internal/domain"

	"github.com/rs/zerolog"
)

// Manager maps session ids to stores. Stores are created and initialised on first
// sight and evicted from memory after IdleTimeout; persisted credentials survive eviction.
type Manager struct {
	creds       domain.CredentialStore
	client      *backend.Client
	opts        []Option
	idleTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Store
	onEvict  []func(id string)
}

func NewManager(creds domain.CredentialStore, client *backend.Client, idleTimeout time.Duration, logger *zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		creds:       creds,
		client:      client,
		opts:        opts,
		idleTimeout: idleTimeout,
		logger:      zerolog.Nop(),
		now:         time.Now,
		sessions:    make(map[string]*Store),
	}
	if logger != nil {
		m.logger = logger.With().Str("component", "session_manager").Logger()
		m.opts = append([]Option{WithLogger(logger)}, m.opts...)
	}
	return m
}

// Get returns the store for id, creating and initialising it if needed.
func (m *Manager) Get(ctx context.Context, id string) *Store {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = NewStore(id, m.creds, m.client, append(m.opts, WithClock(m.now))...)
		m.sessions[id] = s
	}
	m.mu.Unlock()

	s.Touch()
	if !ok {
		s.Init(ctx)
	}
	return s
}

// OnEvict registers fn to run for every session id Sweep evicts.
func (m *Manager) OnEvict(fn func(id string)) {
	m.mu.Lock()
	m.onEvict = append(m.onEvict, fn)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts stores idle for longer than the idle timeout and returns how many were evicted.
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTimeout {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	hooks := m.onEvict
	m.mu.Unlock()

	for _, id := range evicted {
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}
	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info().Dur("idle_timeout", m.idleTimeout).Msg("Session janitor started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Session janitor stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug().Int("evicted", n).Int("active", m.Len()).Msg("Evicted idle sessions")
			}
		}
	}
}
