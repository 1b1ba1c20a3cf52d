package repository

import (
	"context"
	"sync"
	"time"

	"labdesk/internal/models"
)

// MemoryStateRepository keeps sessions in process. Entries expire after ttl
// of inactivity; a zero ttl keeps them until deleted.
type MemoryStateRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

type sessionEntry struct {
	info      models.SessionInfo
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemoryStateRepository) GetSession(ctx context.Context, id string) (*models.SessionInfo, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	info := entry.info
	return &info, nil
}

func (r *MemoryStateRepository) SaveSession(ctx context.Context, info *models.SessionInfo) error {
	entry := &sessionEntry{info: *info}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions.Store(info.ID, entry)
	return nil
}

func (r *MemoryStateRepository) DeleteSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}
	return entry.count <= limit, nil
}
