package safetylog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/detector"
	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/internal/storage"
)

// AssessmentWindow bounds which events count toward a risk assessment.
// Distinct from the storage cap: the cap limits how much is kept, the
// window filters what is read.
const AssessmentWindow = 24 * time.Hour

// Log is the per-user append-only safety event record. Entries are created
// only by the escalation engine and pruned only by the count cap; callers
// never delete them. An optional durable store receives a write-through
// copy of every event and seeds the in-memory record on first access per
// user, so a process restart does not blank the assessment window.
type Log struct {
	mu     sync.Mutex
	events map[int64][]models.SafetyFlag

	cap    int
	negMax int
	isoMax int
	store  storage.EventStore
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Log)

// WithEventStore enables durable write-through of every appended event.
func WithEventStore(store storage.EventStore) Option {
	return func(l *Log) { l.store = store }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

func New(cap, negMax, isoMax int, logger *zap.Logger, opts ...Option) *Log {
	l := &Log{
		events: make(map[int64][]models.SafetyFlag),
		cap:    cap,
		negMax: negMax,
		isoMax: isoMax,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records one event, dropping the oldest beyond the cap. Durable
// store failures are logged and swallowed: losing a write-through copy must
// not block the safety pipeline.
func (l *Log) Append(ctx context.Context, userID int64, flag models.SafetyFlag) {
	l.hydrate(ctx, userID)

	l.mu.Lock()
	events := append(l.events[userID], flag)
	if len(events) > l.cap {
		events = events[len(events)-l.cap:]
	}
	l.events[userID] = events
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveEvent(ctx, userID, flag); err != nil {
			l.logger.Error("Failed to persist safety event",
				zap.Error(err),
				zap.Int64("user_id", userID),
				zap.String("flag_id", flag.ID))
		}
	}
}

// hydrate seeds the user's in-memory record from the durable store on
// first access. Load failures are logged and retried on the next access.
func (l *Log) hydrate(ctx context.Context, userID int64) {
	if l.store == nil {
		return
	}

	l.mu.Lock()
	_, loaded := l.events[userID]
	l.mu.Unlock()
	if loaded {
		return
	}

	flags, err := l.store.GetEvents(ctx, userID, l.now().Add(-AssessmentWindow))
	if err != nil {
		l.logger.Error("Failed to load persisted safety events",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.events[userID]; ok {
		return
	}
	if len(flags) > l.cap {
		flags = flags[len(flags)-l.cap:]
	}
	if flags == nil {
		// Non-nil marks the user as loaded.
		flags = []models.SafetyFlag{}
	}
	l.events[userID] = flags
}

// Recent returns the user's events newer than since, oldest first.
func (l *Log) Recent(ctx context.Context, userID int64, since time.Time) []models.SafetyFlag {
	l.hydrate(ctx, userID)

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.SafetyFlag
	for _, flag := range l.events[userID] {
		if flag.Timestamp.After(since) {
			out = append(out, flag)
		}
	}
	return out
}

// AssessRiskLevel combines the 24h event history with lexical scans of
// recent activity texts. Help-seeking language is recorded as a factor but
// never lowers the computed level.
func (l *Log) AssessRiskLevel(ctx context.Context, userID int64, recentActivity []string) models.RiskAssessment {
	now := l.now()
	recent := l.Recent(ctx, userID, now.Add(-AssessmentWindow))

	level := models.RiskLow
	factors := []string{}

	criticalCount := 0
	elevatedCount := 0
	for _, flag := range recent {
		switch flag.Severity {
		case models.SeverityCritical:
			criticalCount++
			elevatedCount++
		case models.SeverityHigh:
			elevatedCount++
		}
	}

	if criticalCount > 0 {
		level = models.RiskCrisis
		factors = append(factors, "critical safety event in the last 24 hours")
	} else if elevatedCount >= 3 {
		level = models.RiskHigh
		factors = append(factors, "repeated high-severity safety events in the last 24 hours")
	}

	// Language scans can raise low to medium but never lower anything.
	negative := 0
	isolation := 0
	helpSeeking := false
	for _, text := range recentActivity {
		negative += detector.CountNegativeLanguage(text)
		isolation += detector.CountIsolationLanguage(text)
		if detector.HasHelpSeeking(text) {
			helpSeeking = true
		}
	}

	if negative > l.negMax {
		factors = append(factors, "escalating negative language in recent activity")
		level = models.MaxRiskLevel(level, models.RiskMedium)
	}
	if isolation > l.isoMax {
		factors = append(factors, "isolation language in recent activity")
		level = models.MaxRiskLevel(level, models.RiskMedium)
	}
	if helpSeeking {
		factors = append(factors, "help-seeking language present")
	}

	return models.RiskAssessment{
		RiskLevel:          level,
		Factors:            factors,
		Recommendations:    recommendationsFor(level),
		MonitoringRequired: level.AtLeast(models.RiskHigh),
	}
}

func recommendationsFor(level models.RiskLevel) []string {
	switch level {
	case models.RiskCrisis:
		return []string{
			"Escalate to crisis protocol immediately",
			"Surface emergency resources in every response",
			"Schedule a same-day follow-up check-in",
		}
	case models.RiskHigh:
		return []string{
			"Increase check-in frequency",
			"Surface support resources proactively",
		}
	case models.RiskMedium:
		return []string{
			"Monitor upcoming messages for escalation",
			"Offer a gentle check-in prompt",
		}
	default:
		return []string{"Continue routine engagement"}
	}
}
