package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/detector"
	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/internal/moderation"
	"github.com/xaenox/haven-bot/internal/patterns"
	"github.com/xaenox/haven-bot/internal/risk"
	"github.com/xaenox/haven-bot/internal/safetylog"
	"github.com/xaenox/haven-bot/internal/sentiment"
	"github.com/xaenox/haven-bot/internal/storage"
	"github.com/xaenox/haven-bot/internal/tracker"
)

// maxTextLength rejects pathological inputs before they reach the pipeline.
const maxTextLength = 8000

var (
	ErrEmptyText   = errors.New("message text is empty")
	ErrTextTooLong = fmt.Errorf("message text exceeds %d characters", maxTextLength)
)

// Engine is the safety pipeline facade the surrounding application talks
// to. One inbound message is one unit of work; units for different users
// run independently, while same-user state mutation is serialized by the
// tracker's per-user locks.
type Engine struct {
	detector *detector.Detector
	analyzer sentiment.Analyzer
	checker  moderation.Checker
	tracker  *tracker.Tracker
	log      *safetylog.Log
	assessor *risk.Engine
	patterns *patterns.Analyzer
	history  storage.HistoryStore
	logger   *zap.Logger
	now      func() time.Time
}

func New(
	det *detector.Detector,
	analyzer sentiment.Analyzer,
	checker moderation.Checker,
	trk *tracker.Tracker,
	log *safetylog.Log,
	assessor *risk.Engine,
	patternAnalyzer *patterns.Analyzer,
	history storage.HistoryStore,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		detector: det,
		analyzer: analyzer,
		checker:  checker,
		tracker:  trk,
		log:      log,
		assessor: assessor,
		patterns: patternAnalyzer,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > maxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// CheckContent runs the stateless safety check: lexical tiers plus the
// content-safety collaborator. A failed moderation call degrades the result
// to medium rather than reading as safe.
func (e *Engine) CheckContent(ctx context.Context, text string) (models.SafetyResult, error) {
	if err := validateText(text); err != nil {
		return models.SafetyResult{}, err
	}

	detection := e.detector.Detect(text)
	level := tierToRisk(detection.Level)

	categories, err := e.checker.AnalyzeCategories(ctx, text)
	if err != nil {
		e.logger.Warn("Content safety check degraded", zap.Error(err))
		level = models.MaxRiskLevel(level, models.RiskMedium)
	} else if moderation.MaxSelfHarmSeverity(categories) >= e.assessor.SelfHarmThreshold() {
		level = models.MaxRiskLevel(level, models.RiskCrisis)
	}

	return models.SafetyResult{
		Safe:       level == models.RiskLow,
		RiskLevel:  level,
		Categories: categories,
		Indicators: detection.Indicators,
	}, nil
}

// HandleCrisisDetection runs the full per-message pipeline: signal fan-out,
// context update, escalation decision, and event logging. After input
// validation it cannot fail: any internal problem still yields a
// conservative response with resources attached.
func (e *Engine) HandleCrisisDetection(ctx context.Context, userID int64, text string) (response models.CrisisResponse, err error) {
	if err := validateText(text); err != nil {
		return models.CrisisResponse{}, err
	}

	// Omitting a response to a potential crisis message is the one
	// unacceptable failure mode.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Crisis pipeline panicked, returning conservative response",
				zap.Any("panic", r),
				zap.Int64("user_id", userID))
			e.tracker.Reset(userID)
			response = conservativeResponse()
			err = nil
		}
	}()

	detection := e.detector.Detect(text)

	// Both collaborator calls are I/O-bound and independent; issue them
	// concurrently and join before touching tracked state.
	analysisCh := make(chan models.EmotionalAnalysis, 1)
	categoriesCh := make(chan categoriesResult, 1)
	go func() {
		analysisCh <- e.analyzer.Analyze(ctx, text)
	}()
	go func() {
		categories, cerr := e.checker.AnalyzeCategories(ctx, text)
		categoriesCh <- categoriesResult{categories: categories, err: cerr}
	}()
	analysis := <-analysisCh
	catResult := <-categoriesCh

	degraded := analysis.Fallback || catResult.err != nil
	if catResult.err != nil {
		e.logger.Warn("Content safety signal unavailable",
			zap.Error(catResult.err),
			zap.Int64("user_id", userID))
	}

	userCtx := e.tracker.Update(userID, analysis)

	if serr := e.history.SaveSummary(ctx, userID, userCtx.RecentMessages[len(userCtx.RecentMessages)-1]); serr != nil {
		e.logger.Error("Failed to persist message summary",
			zap.Error(serr),
			zap.Int64("user_id", userID))
	}

	since := e.now().Add(-safetylog.AssessmentWindow)
	response, flag := e.assessor.Assess(risk.Signals{
		Text:        text,
		Detection:   detection,
		Categories:  catResult.categories,
		State:       userCtx.EmotionalState,
		RecentFlags: e.log.Recent(ctx, userID, since),
		Degraded:    degraded,
	})

	e.log.Append(ctx, userID, flag)
	e.tracker.AddSafetyFlag(userID, flag)

	e.logger.Info("Crisis assessment complete",
		zap.Int64("user_id", userID),
		zap.String("risk_level", string(response.RiskLevel)),
		zap.Bool("immediate", response.Immediate),
		zap.Bool("degraded", degraded))

	return response, nil
}

type categoriesResult struct {
	categories []models.CategoryScore
	err        error
}

// AssessRiskLevel evaluates the user's 24h event history together with
// recent activity texts.
func (e *Engine) AssessRiskLevel(ctx context.Context, userID int64, recentActivity []string) models.RiskAssessment {
	return e.log.AssessRiskLevel(ctx, userID, recentActivity)
}

// AnalyzeUserPatterns re-evaluates the day-scale history window and returns
// any proactive check-in triggers.
func (e *Engine) AnalyzeUserPatterns(ctx context.Context, userID int64) (models.MoodPattern, []models.CheckInTrigger, error) {
	return e.patterns.Analyze(ctx, userID)
}

// GetConversationContext returns the user's tracked context, if any.
func (e *Engine) GetConversationContext(userID int64) (models.ConversationContext, bool) {
	return e.tracker.Get(userID)
}

// ContextPatch is a partial update to a user's tracked context. Nil fields
// are left untouched.
type ContextPatch struct {
	EmotionalState      *models.EmotionalState
	PersonalizedPrompts []string
}

// UpdateConversationContext applies a patch under the user's lock and
// returns the updated snapshot.
func (e *Engine) UpdateConversationContext(userID int64, patch ContextPatch) models.ConversationContext {
	return e.tracker.Patch(userID, func(ctx *models.ConversationContext) {
		if patch.EmotionalState != nil {
			ctx.EmotionalState = *patch.EmotionalState
		}
		if patch.PersonalizedPrompts != nil {
			ctx.PersonalizedPrompts = dedupe(patch.PersonalizedPrompts, models.PromptCap)
		}
	})
}

func dedupe(prompts []string, limit int) []string {
	seen := make(map[string]struct{}, len(prompts))
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

func tierToRisk(tier detector.Tier) models.RiskLevel {
	switch tier {
	case detector.TierCritical:
		return models.RiskCrisis
	case detector.TierHigh:
		return models.RiskHigh
	case detector.TierMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func conservativeResponse() models.CrisisResponse {
	return models.CrisisResponse{
		RiskLevel:        models.RiskMedium,
		Resources:        detector.EmergencyResources(),
		ResponseMessage:  "I want to make sure you're okay. If you're struggling right now, the resources below are available 24/7.",
		FollowUpRequired: true,
	}
}
