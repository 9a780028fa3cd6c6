// Package session tracks per-conversation state. The only durable fact a
// session holds is the user's remembered display name; everything else
// about a chat exchange is transient. Sessions expire after a TTL of
// inactivity and are reaped in the background.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

// Session is the per-conversation memory. Safe for concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	name     string
	rng      *rand.Rand
	lastSeen time.Time
}

// SetName stores the user's display name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Name returns the remembered display name, or "" if none was given.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Chance returns true with probability p using the session's own RNG,
// so tests can seed a session for reproducible personalization.
func (s *Session) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

// Reseed replaces the session RNG. Intended for deterministic tests.
func (s *Session) Reseed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}

// Touch refreshes the inactivity clock.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

// Manager owns the session table and its expiry reaper.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	seed     func() int64
	log      *logger.Logger
}

// NewManager creates a session manager. The reaper is started separately
// via Run so the caller controls its lifetime.
func NewManager(ttl time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		seed:     func() int64 { return time.Now().UnixNano() },
		log:      log.WithModule("session"),
	}
}

// SetSeed makes every subsequently created session use a fixed RNG seed
// instead of the wall clock, for reproducible personalization.
func (m *Manager) SetSeed(seed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed = func() int64 { return seed }
}

// NewID mints a fresh session identifier.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.Touch()
		return s
	}

	s := &Session{
		ID:       id,
		rng:      rand.New(rand.NewSource(m.seed())),
		lastSeen: time.Now(),
	}
	m.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run reaps expired sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

func (m *Manager) reap() {
	now := time.Now()

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.expired(m.ttl, now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if len(expired) > 0 {
		m.log.WithField("expired", len(expired)).WithField("remaining", remaining).Debug("reaped sessions")
	}
}
