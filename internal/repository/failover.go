package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"labdesk/internal/domain"
	"labdesk/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary until it errors, then from
// fallback, probing primary again once per recoveryInterval. Session
// writes go to both while primary is healthy, so an outage does not lose
// the registry and a recovered primary is refilled from fallback on read.
type FailoverStateRepository struct {
	primary  domain.StateRepository
	fallback domain.StateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

var _ domain.StateRepository = (*FailoverStateRepository)(nil)

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether primary is due for a recovery attempt and,
// if so, restarts the interval.
func (r *FailoverStateRepository) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) <= recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, id string) (*models.SessionInfo, error) {
	if !r.isDown.Load() {
		info, err := r.primary.GetSession(ctx, id)
		if err == nil {
			return r.restore(ctx, id, info)
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		info, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("Primary state repository recovered")
			return r.restore(ctx, id, info)
		}
	}
	return r.fallback.GetSession(ctx, id)
}

// restore fills a primary miss from fallback. Entries saved while primary
// was down exist only there.
func (r *FailoverStateRepository) restore(ctx context.Context, id string, info *models.SessionInfo) (*models.SessionInfo, error) {
	if info != nil {
		return info, nil
	}
	kept, err := r.fallback.GetSession(ctx, id)
	if err != nil || kept == nil {
		return nil, nil
	}
	if err := r.primary.SaveSession(ctx, kept); err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("failed to restore session to primary")
	}
	return kept, nil
}

func (r *FailoverStateRepository) SaveSession(ctx context.Context, info *models.SessionInfo) error {
	if !r.isDown.Load() {
		err := r.primary.SaveSession(ctx, info)
		if err == nil {
			if err := r.fallback.SaveSession(ctx, info); err != nil {
				r.logger.Warn().Err(err).Str("session_id", info.ID).Msg("failed to mirror session to fallback")
			}
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveSession(ctx, info)
}

func (r *FailoverStateRepository) DeleteSession(ctx context.Context, id string) error {
	if !r.isDown.Load() {
		err := r.primary.DeleteSession(ctx, id)
		if err == nil {
			return r.fallback.DeleteSession(ctx, id)
		}
		r.markDown(err)
	}
	return r.fallback.DeleteSession(ctx, id)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
