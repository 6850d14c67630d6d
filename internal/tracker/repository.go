package tracker

import (
	"sync"
	"time"

	"github.com/xaenox/haven-bot/internal/models"
)

// Repository holds one ConversationContext per user. Implementations are
// safe for concurrent use; ordering of read-modify-write sequences is the
// tracker's job, not the repository's.
type Repository interface {
	Get(userID int64) (*models.ConversationContext, bool)
	Put(ctx *models.ConversationContext)
	Delete(userID int64)
	EvictIdle(maxIdle time.Duration, now time.Time) int
}

type MemoryRepository struct {
	mu       sync.RWMutex
	contexts map[int64]*models.ConversationContext
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contexts: make(map[int64]*models.ConversationContext),
	}
}

func (r *MemoryRepository) Get(userID int64) (*models.ConversationContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, ok := r.contexts[userID]
	return ctx, ok
}

func (r *MemoryRepository) Put(ctx *models.ConversationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contexts[ctx.UserID] = ctx
}

func (r *MemoryRepository) Delete(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.contexts, userID)
}

// EvictIdle drops contexts whose last message is older than maxIdle and
// returns how many were removed.
func (r *MemoryRepository) EvictIdle(maxIdle time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-maxIdle)
	evicted := 0
	for id, ctx := range r.contexts {
		if ctx.LastMessageAt.Before(cutoff) {
			delete(r.contexts, id)
			evicted++
		}
	}
	return evicted
}
