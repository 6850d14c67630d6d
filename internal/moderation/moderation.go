package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/pkg/config"
)

// Self-harm category names as reported by the moderation service.
const (
	CategorySelfHarm             = "self-harm"
	CategorySelfHarmIntent       = "self-harm/intent"
	CategorySelfHarmInstructions = "self-harm/instructions"
)

// Checker is the content-safety collaborator. Unlike the sentiment adapter
// it surfaces errors: the escalation engine treats an unavailable safety
// signal as evidence requiring caution, so the failure must be visible.
type Checker interface {
	AnalyzeCategories(ctx context.Context, text string) ([]models.CategoryScore, error)
}

// OpenAIChecker scores text with the OpenAI moderation endpoint and scales
// category scores onto a 0-10 severity axis.
type OpenAIChecker struct {
	client  *openai.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewOpenAIChecker(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIChecker {
	return &OpenAIChecker{
		client:  openai.NewClient(cfg.APIKey),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}
}

func (c *OpenAIChecker) AnalyzeCategories(ctx context.Context, text string) ([]models.CategoryScore, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Moderations(callCtx, openai.ModerationRequest{
		Input: text,
		Model: openai.ModerationTextStable,
	})
	if err != nil {
		c.logger.Warn("Moderation call failed", zap.Error(err))
		return nil, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("moderation returned no results")
	}

	scores := resp.Results[0].CategoryScores
	return []models.CategoryScore{
		{Category: CategorySelfHarm, Severity: scale(float64(scores.SelfHarm))},
		{Category: CategorySelfHarmIntent, Severity: scale(float64(scores.SelfHarmIntent))},
		{Category: CategorySelfHarmInstructions, Severity: scale(float64(scores.SelfHarmInstructions))},
		{Category: "violence", Severity: scale(float64(scores.Violence))},
		{Category: "harassment", Severity: scale(float64(scores.Harassment))},
		{Category: "hate", Severity: scale(float64(scores.Hate))},
	}, nil
}

// scale maps the service's [0,1] probability onto the 0-10 severity axis.
func scale(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 10
	}
	return score * 10
}

// MaxSelfHarmSeverity returns the highest severity among self-harm
// categories, or 0 when none are present.
func MaxSelfHarmSeverity(categories []models.CategoryScore) float64 {
	max := 0.0
	for _, cs := range categories {
		switch cs.Category {
		case CategorySelfHarm, CategorySelfHarmIntent, CategorySelfHarmInstructions:
			if cs.Severity > max {
				max = cs.Severity
			}
		}
	}
	return max
}
