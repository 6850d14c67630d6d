package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/models"
)

func newTestTracker() *Tracker {
	return New(NewMemoryRepository(), 0.3, zap.NewNop())
}

func analysisWithMood(positive, negative float64) models.EmotionalAnalysis {
	return models.EmotionalAnalysis{
		Sentiment: models.SentimentScores{
			Positive: positive,
			Negative: negative,
			Neutral:  1 - positive - negative,
		},
		Emotions: map[models.Emotion]float64{},
	}
}

func TestRecentMessagesKeepsFiveMostRecent(t *testing.T) {
	trk := newTestTracker()

	for i := 1; i <= 6; i++ {
		analysis := analysisWithMood(0.5, 0.1)
		analysis.KeyPhrases = []string{fmt.Sprintf("update %d", i)}
		trk.Update(1, analysis)
	}

	ctx, ok := trk.Get(1)
	require.True(t, ok)
	require.Len(t, ctx.RecentMessages, models.RecentMessageCap)

	// Updates #2 through #6 survive; #1 was evicted.
	for i, msg := range ctx.RecentMessages {
		assert.Equal(t, fmt.Sprintf("update %d", i+2), msg.KeyThemes[0])
	}
}

func TestMoodScoreBounds(t *testing.T) {
	// clamp(round(1 + 4p - 2n), 1, 5) stays in range at the boundaries.
	assert.Equal(t, 5, MoodScore(models.SentimentScores{Positive: 1}))
	assert.Equal(t, 1, MoodScore(models.SentimentScores{Negative: 1}))
	assert.Equal(t, 1, MoodScore(models.SentimentScores{Neutral: 1}))
	assert.Equal(t, 3, MoodScore(models.SentimentScores{Positive: 0.5}))
}

func TestStressLevelBounds(t *testing.T) {
	maxed := models.EmotionalAnalysis{
		Emotions: map[models.Emotion]float64{
			models.EmotionFear:    1,
			models.EmotionAnger:   1,
			models.EmotionSadness: 1,
		},
		StressIndicators: []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	stress := StressLevel(maxed)
	assert.LessOrEqual(t, stress, 10.0)
	assert.Greater(t, stress, 9.0)

	calm := models.EmotionalAnalysis{Emotions: map[models.Emotion]float64{}}
	assert.Equal(t, 0.0, StressLevel(calm))
}

func TestRiskThresholds(t *testing.T) {
	cases := []struct {
		negative   float64
		indicators int
		want       models.RiskLevel
	}{
		{0.95, 4, models.RiskCrisis},
		{0.75, 3, models.RiskHigh},
		{0.6, 0, models.RiskMedium},
		{0.1, 2, models.RiskMedium},
		{0.2, 0, models.RiskLow},
	}

	for _, tc := range cases {
		analysis := models.EmotionalAnalysis{
			Sentiment: models.SentimentScores{Negative: tc.negative},
			Emotions:  map[models.Emotion]float64{},
		}
		for i := 0; i < tc.indicators; i++ {
			analysis.StressIndicators = append(analysis.StressIndicators, "indicator")
		}

		trk := newTestTracker()
		ctx := trk.Update(1, analysis)
		assert.Equal(t, tc.want, ctx.EmotionalState.RiskLevel,
			"negative=%.2f indicators=%d", tc.negative, tc.indicators)
	}
}

func TestSessionResetAfterIdleWindow(t *testing.T) {
	trk := newTestTracker()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trk.SetClock(func() time.Time { return base })

	first := trk.Update(1, analysisWithMood(0.2, 0.6))
	trk.AddSafetyFlag(1, models.SafetyFlag{
		ID:        "flag-1",
		Type:      models.FlagRiskPattern,
		Severity:  models.SeverityMedium,
		Timestamp: base,
	})

	// 25 hours later: new session, cleared window, retained state.
	later := base.Add(25 * time.Hour)
	trk.SetClock(func() time.Time { return later })
	second := trk.Update(1, analysisWithMood(0.2, 0.6))

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Len(t, second.RecentMessages, 1)
	assert.Equal(t, first.EmotionalState.RiskLevel, second.EmotionalState.RiskLevel)
}

func TestSafetyFlagsPrunedPastWindow(t *testing.T) {
	trk := newTestTracker()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trk.SetClock(func() time.Time { return base })
	trk.AddSafetyFlag(1, models.SafetyFlag{ID: "old", Timestamp: base})

	later := base.Add(25 * time.Hour)
	trk.SetClock(func() time.Time { return later })
	trk.AddSafetyFlag(1, models.SafetyFlag{ID: "new", Timestamp: later})

	ctx, ok := trk.Get(1)
	require.True(t, ok)
	require.Len(t, ctx.SafetyFlags, 1)
	assert.Equal(t, "new", ctx.SafetyFlags[0].ID)
}

func TestSnapshotsSurviveLaterPruning(t *testing.T) {
	trk := newTestTracker()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trk.SetClock(func() time.Time { return base })
	trk.AddSafetyFlag(1, models.SafetyFlag{ID: "f1", Timestamp: base})
	trk.AddSafetyFlag(1, models.SafetyFlag{ID: "f2", Timestamp: base.Add(2 * time.Hour)})

	snapshot, ok := trk.Get(1)
	require.True(t, ok)
	require.Len(t, snapshot.SafetyFlags, 2)

	// A later read prunes the expired f1 from the live context; the
	// snapshot taken earlier must not be rewritten by that.
	trk.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	live, ok := trk.Get(1)
	require.True(t, ok)
	require.Len(t, live.SafetyFlags, 1)

	assert.Equal(t, "f1", snapshot.SafetyFlags[0].ID)
	assert.Equal(t, "f2", snapshot.SafetyFlags[1].ID)
}

func TestPromptsCappedAndDeduplicated(t *testing.T) {
	trk := newTestTracker()

	analysis := analysisWithMood(0.1, 0.7)
	analysis.Emotions[models.EmotionSadness] = 0.9
	analysis.KeyPhrases = []string{"work", "work", "family"}

	var ctx models.ConversationContext
	for i := 0; i < 4; i++ {
		ctx = trk.Update(1, analysis)
	}

	assert.LessOrEqual(t, len(ctx.PersonalizedPrompts), models.PromptCap)
	seen := make(map[string]int)
	for _, p := range ctx.PersonalizedPrompts {
		seen[p]++
		assert.Equal(t, 1, seen[p], "duplicate prompt: %s", p)
	}
}

func TestGetUnknownUser(t *testing.T) {
	trk := newTestTracker()
	_, ok := trk.Get(42)
	assert.False(t, ok)
}

func TestEvictIdleContexts(t *testing.T) {
	repo := NewMemoryRepository()
	trk := New(repo, 0.3, zap.NewNop())

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trk.SetClock(func() time.Time { return base })
	trk.Update(1, analysisWithMood(0.5, 0.1))

	evicted := repo.EvictIdle(48*time.Hour, base.Add(72*time.Hour))
	assert.Equal(t, 1, evicted)
	_, ok := repo.Get(1)
	assert.False(t, ok)
}
