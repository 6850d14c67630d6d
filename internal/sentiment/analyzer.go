package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/xaenox/haven-bot/internal/models"
)

// Analyzer turns raw text into a typed emotional analysis. Implementations
// must always return a structurally valid result: the conversational flow
// cannot stall because an NLP collaborator is down.
type Analyzer interface {
	Analyze(ctx context.Context, text string) models.EmotionalAnalysis
}

// Emotion keyword lexicon for the offline fallback path. Frequencies over
// these lists approximate the collaborator's six emotion scores.
var emotionLexicon = map[models.Emotion][]string{
	models.EmotionJoy:      {"happy", "great", "wonderful", "love", "excited", "grateful", "glad", "amazing"},
	models.EmotionSadness:  {"sad", "down", "cry", "crying", "miss", "lost", "lonely", "empty", "depressed"},
	models.EmotionAnger:    {"angry", "furious", "hate", "annoyed", "frustrated", "mad", "unfair"},
	models.EmotionFear:     {"afraid", "scared", "anxious", "worried", "panic", "terrified", "nervous"},
	models.EmotionSurprise: {"surprised", "shocked", "unexpected", "suddenly", "can't believe"},
	models.EmotionDisgust:  {"disgusted", "sick of", "gross", "awful", "revolting"},
}

var positiveWords = []string{
	"good", "great", "happy", "love", "wonderful", "better", "hope",
	"excited", "grateful", "calm", "proud",
}

var negativeWords = []string{
	"bad", "sad", "hate", "terrible", "awful", "worse", "hopeless",
	"tired", "hurt", "scared", "angry", "alone", "worthless",
}

var stressWords = []string{
	"stressed", "overwhelmed", "pressure", "can't cope", "too much",
	"exhausted", "burned out", "deadline", "panic",
}

var copingWords = []string{
	"breathing", "exercise", "walk", "journal", "meditate",
	"talked to", "therapy", "music",
}

// FallbackAnalyzer is the deterministic offline path: keyword frequency over
// the same six emotion labels and a basic positive/negative/neutral split.
type FallbackAnalyzer struct{}

func NewFallbackAnalyzer() *FallbackAnalyzer {
	return &FallbackAnalyzer{}
}

func (a *FallbackAnalyzer) Analyze(_ context.Context, text string) models.EmotionalAnalysis {
	lowered := strings.ToLower(text)
	words := len(strings.Fields(lowered))
	if words == 0 {
		words = 1
	}

	emotions := make(map[models.Emotion]float64, len(models.EmotionLabels))
	for _, label := range models.EmotionLabels {
		count := 0
		for _, kw := range emotionLexicon[label] {
			count += strings.Count(lowered, kw)
		}
		// Scale by text length so short outbursts still register.
		emotions[label] = clamp01(float64(count) * 3.0 / float64(words))
	}

	pos := countAny(lowered, positiveWords)
	neg := countAny(lowered, negativeWords)
	sentiment := splitSentiment(pos, neg)

	analysis := models.EmotionalAnalysis{
		Sentiment:        sentiment,
		Emotions:         emotions,
		KeyPhrases:       []string{},
		StressIndicators: matchedPhrases(lowered, stressWords),
		CopingMechanisms: matchedPhrases(lowered, copingWords),
		Fallback:         true,
	}
	return Normalize(analysis)
}

func splitSentiment(pos, neg int) models.SentimentScores {
	total := pos + neg
	if total == 0 {
		return models.SentimentScores{Neutral: 1}
	}
	p := float64(pos) / float64(total)
	n := float64(neg) / float64(total)
	// Reserve a neutral floor so single-word texts are not all-or-nothing.
	const floor = 0.2
	return models.SentimentScores{
		Positive: p * (1 - floor),
		Negative: n * (1 - floor),
		Neutral:  floor,
	}
}

func countAny(lowered string, phrases []string) int {
	count := 0
	for _, p := range phrases {
		count += strings.Count(lowered, p)
	}
	return count
}

func matchedPhrases(lowered string, phrases []string) []string {
	var out []string
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			out = append(out, p)
		}
	}
	return out
}

// Normalize clamps every emotion score into [0,1] and rescales the sentiment
// split to sum to 1. Collaborator output crosses a trust boundary here:
// parse, then repair, never assume the shape downstream.
func Normalize(a models.EmotionalAnalysis) models.EmotionalAnalysis {
	if a.Emotions == nil {
		a.Emotions = make(map[models.Emotion]float64, len(models.EmotionLabels))
	}
	for _, label := range models.EmotionLabels {
		a.Emotions[label] = clamp01(a.Emotions[label])
	}

	s := a.Sentiment
	s.Positive = clamp01(s.Positive)
	s.Neutral = clamp01(s.Neutral)
	s.Negative = clamp01(s.Negative)
	sum := s.Positive + s.Neutral + s.Negative
	if sum <= 0 {
		s = models.SentimentScores{Neutral: 1}
	} else if math.Abs(sum-1) > 0.01 {
		s.Positive /= sum
		s.Neutral /= sum
		s.Negative /= sum
	}
	a.Sentiment = s

	if a.KeyPhrases == nil {
		a.KeyPhrases = []string{}
	}
	if a.StressIndicators == nil {
		a.StressIndicators = []string{}
	}
	if a.CopingMechanisms == nil {
		a.CopingMechanisms = []string{}
	}
	return a
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
