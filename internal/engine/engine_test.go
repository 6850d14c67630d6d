package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/detector"
	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/internal/patterns"
	"github.com/xaenox/haven-bot/internal/risk"
	"github.com/xaenox/haven-bot/internal/safetylog"
	"github.com/xaenox/haven-bot/internal/sentiment"
	"github.com/xaenox/haven-bot/internal/storage"
	"github.com/xaenox/haven-bot/internal/tracker"
	"github.com/xaenox/haven-bot/pkg/config"
)

// stubAnalyzer returns a fixed analysis without any I/O.
type stubAnalyzer struct {
	analysis models.EmotionalAnalysis
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) models.EmotionalAnalysis {
	return sentiment.Normalize(s.analysis)
}

// stubChecker returns fixed category scores or a fixed error.
type stubChecker struct {
	categories []models.CategoryScore
	err        error
}

func (s *stubChecker) AnalyzeCategories(_ context.Context, _ string) ([]models.CategoryScore, error) {
	return s.categories, s.err
}

func newTestEngine(analyzer sentiment.Analyzer, checker *stubChecker) *Engine {
	cfg := config.Default()
	logger := zap.NewNop()
	store := storage.NewMemoryStorage()

	det := detector.New(cfg.Detector)
	trk := tracker.New(tracker.NewMemoryRepository(), cfg.Safety.EmotionThreshold, logger)
	eventLog := safetylog.New(cfg.Safety.EventLogCap, cfg.Safety.NegativeLanguageMax, cfg.Safety.IsolationMax, logger, safetylog.WithEventStore(store))
	assessor := risk.NewEngine(cfg.Safety.SelfHarmSeverity, logger)
	patternAnalyzer := patterns.New(store, cfg.Patterns, logger)

	return New(det, analyzer, checker, trk, eventLog, assessor, patternAnalyzer, store, logger)
}

func calmAnalysis() models.EmotionalAnalysis {
	return models.EmotionalAnalysis{
		Sentiment: models.SentimentScores{Positive: 0.7, Neutral: 0.3},
		Emotions:  map[models.Emotion]float64{models.EmotionJoy: 0.8},
	}
}

func TestHandleCrisisDetectionScenarioCrisis(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	response, err := eng.HandleCrisisDetection(context.Background(), 1, "I want to kill myself tonight")
	require.NoError(t, err)

	assert.Equal(t, models.RiskCrisis, response.RiskLevel)
	assert.True(t, response.Immediate)
	assert.True(t, response.FollowUpRequired)

	found := false
	for _, r := range response.Resources {
		if strings.Contains(r, "24/7") {
			found = true
		}
	}
	assert.True(t, found, "expected a 24/7 hotline resource")

	// The decision leaves a critical flag on the user's context.
	ctx, ok := eng.GetConversationContext(1)
	require.True(t, ok)
	require.NotEmpty(t, ctx.SafetyFlags)
	assert.Equal(t, models.SeverityCritical, ctx.SafetyFlags[0].Severity)
}

func TestHandleCrisisDetectionCalmMessage(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	response, err := eng.HandleCrisisDetection(context.Background(), 1, "I had a great day, feeling happy")
	require.NoError(t, err)

	assert.Equal(t, models.RiskLow, response.RiskLevel)
	assert.False(t, response.Immediate)
	assert.False(t, response.FollowUpRequired)
	assert.NotEmpty(t, response.ResponseMessage)
}

func TestFailOpenWhenModerationUnavailable(t *testing.T) {
	checker := &stubChecker{err: errors.New("service timeout")}
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, checker)

	response, err := eng.HandleCrisisDetection(context.Background(), 1, "a harmless message")
	require.NoError(t, err)

	assert.True(t, response.RiskLevel.AtLeast(models.RiskMedium))
	assert.True(t, response.FollowUpRequired)
	assert.NotEmpty(t, response.Resources)
}

func TestFailOpenWhenSentimentFallsBack(t *testing.T) {
	// The real fallback analyzer marks its output; the pipeline treats
	// that as a degraded signal source.
	eng := newTestEngine(sentiment.NewFallbackAnalyzer(), &stubChecker{})

	response, err := eng.HandleCrisisDetection(context.Background(), 1, "a harmless message")
	require.NoError(t, err)

	assert.True(t, response.RiskLevel.AtLeast(models.RiskMedium))
	assert.True(t, response.FollowUpRequired)
	assert.NotEmpty(t, response.Resources)
}

func TestValidationRejectsEmptyAndOversizedText(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	_, err := eng.HandleCrisisDetection(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = eng.HandleCrisisDetection(context.Background(), 1, strings.Repeat("a", maxTextLength+1))
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = eng.CheckContent(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCheckContentCriticalKeyword(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	result, err := eng.CheckContent(context.Background(), "I want to end my life")
	require.NoError(t, err)

	assert.False(t, result.Safe)
	assert.Equal(t, models.RiskCrisis, result.RiskLevel)
	assert.NotEmpty(t, result.Indicators)
}

func TestCheckContentDegradesOnModerationFailure(t *testing.T) {
	checker := &stubChecker{err: errors.New("unavailable")}
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, checker)

	result, err := eng.CheckContent(context.Background(), "hello there")
	require.NoError(t, err)

	assert.False(t, result.Safe)
	assert.Equal(t, models.RiskMedium, result.RiskLevel)
}

func TestCheckContentCleanText(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{
		categories: []models.CategoryScore{{Category: "self-harm", Severity: 0.2}},
	})

	result, err := eng.CheckContent(context.Background(), "lovely weather today")
	require.NoError(t, err)

	assert.True(t, result.Safe)
	assert.Equal(t, models.RiskLow, result.RiskLevel)
}

func TestAssessRiskLevelUsesLoggedEvents(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	// A crisis message leaves a critical event behind.
	_, err := eng.HandleCrisisDetection(context.Background(), 1, "I want to kill myself tonight")
	require.NoError(t, err)

	assessment := eng.AssessRiskLevel(context.Background(), 1, nil)
	assert.Equal(t, models.RiskCrisis, assessment.RiskLevel)
	assert.True(t, assessment.MonitoringRequired)
}

func TestUpdateConversationContextPatch(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	state := &models.EmotionalState{
		CurrentMood:     2,
		DominantEmotion: models.EmotionSadness,
		StressLevel:     6,
		RiskLevel:       models.RiskMedium,
	}
	ctx := eng.UpdateConversationContext(1, ContextPatch{
		EmotionalState:      state,
		PersonalizedPrompts: []string{"p1", "p1", "p2", "p3", "p4", "p5", "p6"},
	})

	assert.Equal(t, *state, ctx.EmotionalState)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, ctx.PersonalizedPrompts)
}

func TestAnalyzeUserPatternsEmptyHistory(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	pattern, triggers, err := eng.AnalyzeUserPatterns(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pattern.UserID)
	require.Len(t, triggers, 1)
	assert.Equal(t, models.TriggerInactivity, triggers[0].Type)
}

func TestConcurrentMessagesSameUserKeepWindowBounded(t *testing.T) {
	eng := newTestEngine(&stubAnalyzer{analysis: calmAnalysis()}, &stubChecker{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.HandleCrisisDetection(context.Background(), 1, "thinking about my day")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ctx, ok := eng.GetConversationContext(1)
	require.True(t, ok)
	assert.LessOrEqual(t, len(ctx.RecentMessages), models.RecentMessageCap)
}
