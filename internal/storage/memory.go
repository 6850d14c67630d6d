package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/haven-bot/internal/models"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	summaries map[int64][]models.MessageSummary
	events    map[int64][]models.SafetyFlag
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		summaries: make(map[int64][]models.MessageSummary),
		events:    make(map[int64][]models.SafetyFlag),
	}
}

func (s *MemoryStorage) SaveSummary(ctx context.Context, userID int64, summary models.MessageSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[userID] = append(s.summaries[userID], summary)
	return nil
}

func (s *MemoryStorage) GetRecentSummaries(ctx context.Context, userID int64, since time.Time) ([]models.MessageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.MessageSummary
	for _, summary := range s.summaries[userID] {
		if summary.Timestamp.After(since) {
			out = append(out, summary)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStorage) SaveEvent(ctx context.Context, userID int64, flag models.SafetyFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[userID] = append(s.events[userID], flag)
	return nil
}

func (s *MemoryStorage) GetEvents(ctx context.Context, userID int64, since time.Time) ([]models.SafetyFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SafetyFlag
	for _, flag := range s.events[userID] {
		if flag.Timestamp.After(since) {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
