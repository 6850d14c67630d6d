package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/pkg/config"
)

type gptAnalysis struct {
	Sentiment struct {
		Positive float64 `json:"positive"`
		Neutral  float64 `json:"neutral"`
		Negative float64 `json:"negative"`
	} `json:"sentiment"`
	Emotions struct {
		Joy      float64 `json:"joy"`
		Sadness  float64 `json:"sadness"`
		Anger    float64 `json:"anger"`
		Fear     float64 `json:"fear"`
		Surprise float64 `json:"surprise"`
		Disgust  float64 `json:"disgust"`
	} `json:"emotions"`
	KeyPhrases       []string `json:"key_phrases"`
	StressIndicators []string `json:"stress_indicators"`
	CopingMechanisms []string `json:"coping_mechanisms"`
}

// GPTAnalyzer wraps the OpenAI chat API as the sentiment/emotion
// collaborator. Any failure or timeout falls through to the deterministic
// keyword fallback; this analyzer never surfaces an error to its caller.
type GPTAnalyzer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	maxRetries  int
	fallback    *FallbackAnalyzer
	logger      *zap.Logger
}

func NewGPTAnalyzer(cfg config.OpenAIConfig, logger *zap.Logger) *GPTAnalyzer {
	return &GPTAnalyzer{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxRetries:  cfg.MaxRetries,
		fallback:    NewFallbackAnalyzer(),
		logger:      logger,
	}
}

func (a *GPTAnalyzer) Analyze(ctx context.Context, text string) models.EmotionalAnalysis {
	prompt := fmt.Sprintf(`Analyze the emotional content of the following message and return a JSON object with this exact structure:
{
    "sentiment": {"positive": 0.0, "neutral": 0.0, "negative": 0.0},
    "emotions": {"joy": 0.0, "sadness": 0.0, "anger": 0.0, "fear": 0.0, "surprise": 0.0, "disgust": 0.0},
    "key_phrases": ["phrase1", "phrase2"],
    "stress_indicators": ["indicator1"],
    "coping_mechanisms": ["mechanism1"]
}

Sentiment values must sum to 1. Emotion values are each between 0 and 1.

Message: %s`, text)

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		parsed, err := a.callOnce(ctx, prompt)
		if err == nil {
			return Normalize(parsed)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	a.logger.Warn("Sentiment analysis falling back to keyword heuristics",
		zap.Error(lastErr))
	return a.fallback.Analyze(ctx, text)
}

func (a *GPTAnalyzer) callOnce(ctx context.Context, prompt string) (models.EmotionalAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(
		callCtx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   a.maxTokens,
			Temperature: float32(a.temperature),
		},
	)
	if err != nil {
		return models.EmotionalAnalysis{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.EmotionalAnalysis{}, fmt.Errorf("chat completion returned no choices")
	}

	var parsed gptAnalysis
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.EmotionalAnalysis{}, fmt.Errorf("parse analysis response: %w", err)
	}

	return models.EmotionalAnalysis{
		Sentiment: models.SentimentScores{
			Positive: parsed.Sentiment.Positive,
			Neutral:  parsed.Sentiment.Neutral,
			Negative: parsed.Sentiment.Negative,
		},
		Emotions: map[models.Emotion]float64{
			models.EmotionJoy:      parsed.Emotions.Joy,
			models.EmotionSadness:  parsed.Emotions.Sadness,
			models.EmotionAnger:    parsed.Emotions.Anger,
			models.EmotionFear:     parsed.Emotions.Fear,
			models.EmotionSurprise: parsed.Emotions.Surprise,
			models.EmotionDisgust:  parsed.Emotions.Disgust,
		},
		KeyPhrases:       parsed.KeyPhrases,
		StressIndicators: parsed.StressIndicators,
		CopingMechanisms: parsed.CopingMechanisms,
	}, nil
}
