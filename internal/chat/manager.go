package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/speech"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("chat: session not found")

// Manager keeps the live sessions of a server. All methods are safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
}

// NewManager returns a manager creating sessions from d.
func NewManager(d Deps) *Manager {
	if d.Metrics == nil {
		d.Metrics = observe.DefaultMetrics()
	}
	return &Manager{deps: d, sessions: make(map[string]*Session)}
}

// Create starts a session with figure in language under a fresh id.
func (m *Manager) Create(ctx context.Context, figure, language string) (*Session, error) {
	m.mu.Lock()
	d := m.deps
	m.mu.Unlock()

	s, err := NewSession(ctx, uuid.NewString(), figure, language, d)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	d.Metrics.ActiveSessions.Add(ctx, 1)
	observe.Logger(ctx).Info("session created", "session", s.ID(), "figure", figure, "language", language, "active", n)
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends and forgets the session with id.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	metrics := m.deps.Metrics
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.ActiveSessions.Add(ctx, -1)
	observe.Logger(ctx).Info("session closed", "session", id)
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	metrics := m.deps.Metrics
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
	if len(all) > 0 {
		metrics.ActiveSessions.Add(ctx, -int64(len(all)))
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SetVoices changes the hosted voice catalog of every live and future
// session.
func (m *Manager) SetVoices(v speech.VoiceCatalog) {
	m.mu.Lock()
	m.deps.Voices = v
	live := m.live()
	m.mu.Unlock()
	for _, s := range live {
		s.speech.SetVoices(v)
	}
}

// SetTurnDelay changes the pause between debate speakers of every live and
// future session.
func (m *Manager) SetTurnDelay(d time.Duration) {
	m.mu.Lock()
	m.deps.TurnDelay = d
	live := m.live()
	m.mu.Unlock()
	for _, s := range live {
		s.orch.SetTurnDelay(d)
	}
}

// live must be called with m.mu held.
func (m *Manager) live() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
