package patterns

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/internal/storage"
	"github.com/xaenox/haven-bot/pkg/config"
)

// trendDelta is the half-window average-mood difference beyond which the
// trend counts as improving or declining. This is the chosen trend formula;
// the alternative slope-over-last-5-points form is deliberately not used.
const trendDelta = 0.5

// moodRange normalizes a mood decline onto [0,1]; mood runs 1-5.
const moodRange = 4.0

// Analyzer evaluates the day-scale history window for mood decline, stress
// spikes, inactivity, and concerning-language trends.
type Analyzer struct {
	history storage.HistoryStore
	cfg     config.PatternsConfig
	logger  *zap.Logger
	now     func() time.Time
}

func New(history storage.HistoryStore, cfg config.PatternsConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		history: history,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// Analyze builds the user's mood pattern over the configured window and
// derives any check-in triggers from it.
func (a *Analyzer) Analyze(ctx context.Context, userID int64) (models.MoodPattern, []models.CheckInTrigger, error) {
	now := a.now()
	since := now.AddDate(0, 0, -a.cfg.WindowDays)

	summaries, err := a.history.GetRecentSummaries(ctx, userID, since)
	if err != nil {
		return models.MoodPattern{}, nil, fmt.Errorf("load history window: %w", err)
	}

	pattern := models.MoodPattern{
		UserID:       userID,
		Period:       fmt.Sprintf("%dd", a.cfg.WindowDays),
		MoodTrend:    models.TrendStable,
		LastAnalyzed: now,
	}
	triggers := []models.CheckInTrigger{}

	if inactive, days := a.inactivity(summaries, now); inactive {
		pattern.ConcerningIndicators = append(pattern.ConcerningIndicators, "no activity in the inactivity window")
		triggers = append(triggers, models.CheckInTrigger{
			Type:        models.TriggerInactivity,
			Severity:    models.SeverityMedium,
			Description: fmt.Sprintf("No messages in %d days", days),
			Threshold:   float64(a.cfg.InactivityDays),
		})
	}

	if len(summaries) == 0 {
		return pattern, triggers, nil
	}

	pattern.AverageMood = averageMood(summaries)

	trend, declineSeverity := moodTrend(summaries)
	pattern.MoodTrend = trend
	if trend == models.TrendDeclining && declineSeverity > a.cfg.DeclineSeverity {
		severity := models.SeverityMedium
		if declineSeverity > a.cfg.DeclineHighSeverity {
			severity = models.SeverityHigh
		}
		pattern.ConcerningIndicators = append(pattern.ConcerningIndicators, "declining mood trend")
		triggers = append(triggers, models.CheckInTrigger{
			Type:        models.TriggerMoodDecline,
			Severity:    severity,
			Description: fmt.Sprintf("Mood declining over the last %s", pattern.Period),
			Threshold:   declineSeverity,
		})
	}

	if stress := averageStress(summaries); stress > a.cfg.StressThreshold {
		pattern.ConcerningIndicators = append(pattern.ConcerningIndicators, "sustained elevated stress")
		triggers = append(triggers, models.CheckInTrigger{
			Type:        models.TriggerStressSpike,
			Severity:    models.SeverityMedium,
			Description: fmt.Sprintf("Average stress %.1f over the last %s", stress, pattern.Period),
			Threshold:   stress,
		})
	}

	if score := concerningLanguageScore(summaries); score > a.cfg.LanguageThreshold {
		pattern.ConcerningIndicators = append(pattern.ConcerningIndicators, "concerning language trend")
		triggers = append(triggers, models.CheckInTrigger{
			Type:        models.TriggerConcerningLanguage,
			Severity:    models.SeverityMedium,
			Description: "Concerning emotional tone across recent messages",
			Threshold:   score,
		})
	}

	a.logger.Debug("Pattern analysis complete",
		zap.Int64("user_id", userID),
		zap.String("trend", string(pattern.MoodTrend)),
		zap.Int("triggers", len(triggers)))

	return pattern, triggers, nil
}

func (a *Analyzer) inactivity(summaries []models.MessageSummary, now time.Time) (bool, int) {
	days := a.cfg.InactivityDays
	cutoff := now.AddDate(0, 0, -days)
	if len(summaries) == 0 {
		return true, days
	}
	last := summaries[len(summaries)-1].Timestamp
	return last.Before(cutoff), days
}

func averageMood(summaries []models.MessageSummary) float64 {
	total := 0
	for _, s := range summaries {
		total += s.UserMood
	}
	return float64(total) / float64(len(summaries))
}

// moodTrend splits the window chronologically in half and compares average
// moods. Returns the trend plus the decline severity normalized to [0,1].
func moodTrend(summaries []models.MessageSummary) (models.MoodTrend, float64) {
	if len(summaries) < 2 {
		return models.TrendStable, 0
	}

	mid := len(summaries) / 2
	first := averageMood(summaries[:mid])
	second := averageMood(summaries[mid:])
	delta := second - first

	switch {
	case delta > trendDelta:
		return models.TrendImproving, 0
	case delta < -trendDelta:
		return models.TrendDeclining, -delta / moodRange
	default:
		return models.TrendStable, 0
	}
}

// averageStress derives a 0-5 stress proxy per message from mood and tone;
// summaries do not carry a stress score of their own.
func averageStress(summaries []models.MessageSummary) float64 {
	total := 0.0
	for _, s := range summaries {
		stress := float64(5-s.UserMood) * 1.1
		if s.EmotionalTone == models.EmotionFear || s.EmotionalTone == models.EmotionAnger {
			stress += 0.6
		}
		if stress > 5 {
			stress = 5
		}
		total += stress
	}
	return total / float64(len(summaries))
}

// concerningLanguageScore is the fraction of messages with a distressed
// tone or a bottom-of-scale mood.
func concerningLanguageScore(summaries []models.MessageSummary) float64 {
	concerning := 0
	for _, s := range summaries {
		switch {
		case s.UserMood <= 2:
			concerning++
		case s.EmotionalTone == models.EmotionSadness || s.EmotionalTone == models.EmotionFear:
			concerning++
		}
	}
	return float64(concerning) / float64(len(summaries))
}
