package guardian

import (
	"context"
	"log/slog"
	"sync"

	"chorebank/internal/store"
)

// Manager hands out one live Session per signed-in guardian, opening it
// lazily on first use and tearing it down on sign-out or server shutdown.
type Manager struct {
	store  store.Store
	logger *slog.Logger

	// Sessions outlive the request that happens to open them, so their
	// subscriptions bind to this context, which lives until CloseAll.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    st,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Session returns the live session for userID, opening one if needed. The
// caller's context gates only this call; the session itself subscribes on
// the manager's lifetime.
func (m *Manager) Session(ctx context.Context, userID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	// Open outside the lock: it blocks on the first snapshots.
	s, err := Open(m.ctx, m.store, userID, m.logger.With("guardian_id", userID))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok {
		go s.Close()
		return existing, nil
	}
	m.sessions[userID] = s
	return s, nil
}

// End closes and forgets the session for userID, if any.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll ends every session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.cancel()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
