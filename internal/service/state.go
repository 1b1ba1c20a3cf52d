package service

import (
	"context"
	"sync"
	"time"

	"labdesk/internal/domain"
	"labdesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ManagerConfig configures the sessions a SessionManager opens.
type ManagerConfig struct {
	Session        SessionOptions
	MutationLimit  int
	MutationWindow time.Duration
}

// SessionManager owns the open dashboard sessions. The in-process map
// holds the live state; the state repository holds the registry entry
// whose expiry ends a session.
type SessionManager struct {
	source domain.RecordSource
	repo   domain.StateRepository
	events domain.EventPublisher
	cfg    ManagerConfig
	logger *zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

func NewSessionManager(source domain.RecordSource, repo domain.StateRepository, publisher domain.EventPublisher, cfg ManagerConfig, logger *zerolog.Logger) *SessionManager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg.Session = cfg.Session.withDefaults()
	return &SessionManager{
		source:   source,
		repo:     repo,
		events:   publisher,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
	}
}

// Open starts an empty session for operator, registers it and runs the
// initial load. A failed load still returns the session; its view
// carries the error.
func (m *SessionManager) Open(ctx context.Context, operator string) (*Session, error) {
	id := m.newID()
	session := NewSession(id, operator, m.source, m.events, m.cfg.Session, m.logger)

	info := &models.SessionInfo{
		ID:        id,
		Operator:  operator,
		CreatedAt: m.cfg.Session.Now(),
	}
	if err := m.repo.SaveSession(ctx, info); err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("failed to register session")
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	m.logger.Info().Str("session_id", id).Str("operator", operator).Msg("session opened")

	if err := session.Load(ctx); err == nil {
		m.touch(ctx, info)
	}
	return session, nil
}

// Get returns a live session and extends its registry entry. Sessions
// whose registry entry expired are discarded.
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	info, err := m.repo.GetSession(ctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("session registry unavailable")
		return session, nil
	}
	if info == nil {
		m.discard(id)
		m.logger.Info().Str("session_id", id).Msg("session expired")
		return nil, ErrSessionNotFound
	}

	info.LastSeenAt = m.cfg.Session.Now()
	m.save(ctx, info)
	return session, nil
}

// Approve decides a request on a live session, extending the session on
// success.
func (m *SessionManager) Approve(ctx context.Context, id string, kind models.Kind, requestID int64) (*Session, error) {
	return m.decide(ctx, id, func(s *Session) error {
		return s.Approve(ctx, kind, requestID)
	})
}

// Reject is Approve's counterpart.
func (m *SessionManager) Reject(ctx context.Context, id string, kind models.Kind, requestID int64, comment string) (*Session, error) {
	return m.decide(ctx, id, func(s *Session) error {
		return s.Reject(ctx, kind, requestID, comment)
	})
}

func (m *SessionManager) decide(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return session, err
	}
	m.refresh(ctx, session)
	return session, nil
}

// Reload reloads a session and refreshes its registry entry.
func (m *SessionManager) Reload(ctx context.Context, id string) (*Session, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Load(ctx); err != nil {
		return session, nil
	}
	m.refresh(ctx, session)
	return session, nil
}

// Close tears a session down.
func (m *SessionManager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	if err := m.repo.DeleteSession(ctx, id); err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to delete session info")
	}
	m.logger.Info().Str("session_id", id).Msg("session closed")
	return nil
}

// CheckMutationRate enforces the per-operator decision limit.
func (m *SessionManager) CheckMutationRate(ctx context.Context, operator string) error {
	if m.cfg.MutationLimit <= 0 || m.cfg.MutationWindow <= 0 {
		return nil
	}
	allowed, err := m.repo.CheckRateLimit(ctx, "decisions:"+operator, m.cfg.MutationLimit, m.cfg.MutationWindow)
	if err != nil {
		m.logger.Warn().Err(err).Str("operator", operator).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions whose registry entry has expired and returns how
// many were dropped. Nothing is dropped while the registry is unreachable.
func (m *SessionManager) Sweep(ctx context.Context) int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	dropped := 0
	for _, id := range ids {
		info, err := m.repo.GetSession(ctx, id)
		if err != nil {
			m.logger.Warn().Err(err).Msg("session sweep skipped, registry unavailable")
			return dropped
		}
		if info == nil {
			m.discard(id)
			dropped++
		}
	}
	if dropped > 0 {
		m.logger.Info().Int("dropped", dropped).Int("live", m.Count()).Msg("expired sessions swept")
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *SessionManager) discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// refresh marks a session as freshly loaded, recreating its registry
// entry if the repository lost it.
func (m *SessionManager) refresh(ctx context.Context, session *Session) {
	info, err := m.repo.GetSession(ctx, session.ID())
	if err != nil || info == nil {
		info = &models.SessionInfo{ID: session.ID(), Operator: session.Operator()}
	}
	m.touch(ctx, info)
}

func (m *SessionManager) touch(ctx context.Context, info *models.SessionInfo) {
	now := m.cfg.Session.Now()
	info.LastLoadedAt = now
	info.LastSeenAt = now
	m.save(ctx, info)
}

// save rewrites the registry entry, which restarts its ttl.
func (m *SessionManager) save(ctx context.Context, info *models.SessionInfo) {
	if err := m.repo.SaveSession(ctx, info); err != nil {
		m.logger.Warn().Err(err).Str("session_id", info.ID).Msg("failed to refresh session info")
	}
}
