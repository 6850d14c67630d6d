package storage

import (
	"context"
	"time"

	"github.com/xaenox/haven-bot/internal/models"
)

// HistoryStore supplies the day-scale message-summary window used by the
// pattern analyzer. This is deliberately wider than the 5-entry rolling
// window the tracker keeps in memory.
type HistoryStore interface {
	SaveSummary(ctx context.Context, userID int64, summary models.MessageSummary) error
	GetRecentSummaries(ctx context.Context, userID int64, since time.Time) ([]models.MessageSummary, error)
}

// EventStore persists safety flags beyond process lifetime.
type EventStore interface {
	SaveEvent(ctx context.Context, userID int64, flag models.SafetyFlag) error
	GetEvents(ctx context.Context, userID int64, since time.Time) ([]models.SafetyFlag, error)
}

type Storage interface {
	HistoryStore
	EventStore
	Close() error
}
