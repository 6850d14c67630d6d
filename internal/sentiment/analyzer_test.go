package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/haven-bot/internal/models"
)

func assertValid(t *testing.T, a models.EmotionalAnalysis) {
	t.Helper()

	sum := a.Sentiment.Positive + a.Sentiment.Neutral + a.Sentiment.Negative
	assert.InDelta(t, 1.0, sum, 0.01, "sentiment must sum to ~1")

	for _, label := range models.EmotionLabels {
		score := a.Emotions[label]
		assert.GreaterOrEqual(t, score, 0.0, "emotion %s", label)
		assert.LessOrEqual(t, score, 1.0, "emotion %s", label)
	}

	assert.NotNil(t, a.KeyPhrases)
	assert.NotNil(t, a.StressIndicators)
	assert.NotNil(t, a.CopingMechanisms)
}

func TestFallbackAlwaysStructurallyValid(t *testing.T) {
	a := NewFallbackAnalyzer()

	for _, text := range []string{
		"",
		"I had a great day, feeling happy",
		"everything is awful and I hate it all",
		"stressed overwhelmed panic too much pressure",
		"just a plain sentence about groceries",
	} {
		analysis := a.Analyze(context.Background(), text)
		assertValid(t, analysis)
		assert.True(t, analysis.Fallback)
	}
}

func TestFallbackJoyOutweighsSadnessOnHappyText(t *testing.T) {
	a := NewFallbackAnalyzer()

	analysis := a.Analyze(context.Background(), "I had a great day, feeling happy")
	assert.Greater(t, analysis.Emotions[models.EmotionJoy], analysis.Emotions[models.EmotionSadness])
	assert.Greater(t, analysis.Sentiment.Positive, analysis.Sentiment.Negative)
}

func TestFallbackDetectsStressIndicators(t *testing.T) {
	a := NewFallbackAnalyzer()

	analysis := a.Analyze(context.Background(), "I'm so overwhelmed, the pressure is too much")
	assert.NotEmpty(t, analysis.StressIndicators)
}

func TestNormalizeRepairsOutOfRangeScores(t *testing.T) {
	dirty := models.EmotionalAnalysis{
		Sentiment: models.SentimentScores{Positive: 3, Neutral: -1, Negative: 2},
		Emotions: map[models.Emotion]float64{
			models.EmotionJoy:     1.7,
			models.EmotionSadness: -0.4,
		},
	}

	clean := Normalize(dirty)
	assertValid(t, clean)
	assert.Equal(t, 1.0, clean.Emotions[models.EmotionJoy])
	assert.Equal(t, 0.0, clean.Emotions[models.EmotionSadness])
}

func TestNormalizeZeroSentimentBecomesNeutral(t *testing.T) {
	clean := Normalize(models.EmotionalAnalysis{})
	require.Equal(t, 1.0, clean.Sentiment.Neutral)
	assertValid(t, clean)
}

func TestDominantEmotionThreshold(t *testing.T) {
	analysis := models.EmotionalAnalysis{
		Emotions: map[models.Emotion]float64{
			models.EmotionFear:    0.8,
			models.EmotionSadness: 0.5,
		},
	}
	assert.Equal(t, models.EmotionFear, analysis.DominantEmotion(0.3))

	weak := models.EmotionalAnalysis{
		Emotions: map[models.Emotion]float64{models.EmotionJoy: 0.2},
	}
	assert.Equal(t, models.EmotionNeutral, weak.DominantEmotion(0.3))
}
