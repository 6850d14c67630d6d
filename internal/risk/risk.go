package risk

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/detector"
	"github.com/xaenox/haven-bot/internal/models"
	"github.com/xaenox/haven-bot/internal/moderation"
)

// Signals gathers everything one escalation decision considers. Degraded
// marks that at least one signal source was unavailable or timed out, which
// is itself evidence requiring caution.
type Signals struct {
	Text        string
	Detection   detector.Result
	Categories  []models.CategoryScore
	State       models.EmotionalState
	RecentFlags []models.SafetyFlag
	Degraded    bool
}

// Engine combines lexical, moderation, tracked-state, and event-log signals
// into one ordered escalation decision.
type Engine struct {
	selfHarmSeverity float64
	logger           *zap.Logger
	now              func() time.Time
}

func NewEngine(selfHarmSeverity float64, logger *zap.Logger) *Engine {
	return &Engine{
		selfHarmSeverity: selfHarmSeverity,
		logger:           logger,
		now:              time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SelfHarmThreshold is the moderation severity at which self-harm content
// escalates straight to crisis.
func (e *Engine) SelfHarmThreshold() float64 {
	return e.selfHarmSeverity
}

// Assess evaluates the escalation precedence rules top to bottom, highest
// wins, and produces the response payload plus the safety flag to record.
// It never returns an empty result: every path yields a level, a message,
// and (at medium and above) resources.
func (e *Engine) Assess(signals Signals) (models.CrisisResponse, models.SafetyFlag) {
	level, immediate := e.escalate(signals)

	// A recent elevated event keeps the floor at medium even when the
	// current message alone looks calm.
	for _, flag := range signals.RecentFlags {
		if flag.Severity == models.SeverityHigh || flag.Severity == models.SeverityCritical {
			level = models.MaxRiskLevel(level, models.RiskMedium)
			break
		}
	}

	followUp := level.AtLeast(models.RiskHigh)

	if signals.Degraded {
		// Fail-open-to-caution: an unavailable safety dependency never
		// reads as "no risk".
		level = models.MaxRiskLevel(level, models.RiskMedium)
		followUp = true
		e.logger.Warn("Assessing with degraded signals",
			zap.String("risk_level", string(level)))
	}

	response := models.CrisisResponse{
		RiskLevel:        level,
		Immediate:        immediate,
		Resources:        resourcesFor(level, signals.Degraded),
		ResponseMessage:  responseTemplate(level),
		FollowUpRequired: followUp,
	}

	flag := models.SafetyFlag{
		ID:          uuid.New().String(),
		Type:        flagTypeFor(signals),
		Severity:    models.SeverityForRisk(level),
		Timestamp:   e.now(),
		Context:     flagContext(signals, level),
		ActionTaken: actionFor(level),
	}

	return response, flag
}

// escalate applies the five precedence rules. Ordering matters: each rule
// is only reached when every higher rule missed.
func (e *Engine) escalate(s Signals) (models.RiskLevel, bool) {
	ideation := detector.HasSuicidalIdeation(s.Text)
	selfHarm := detector.HasSelfHarm(s.Text)
	distress := detector.HasSevereDistress(s.Text)

	// Rule 1: critical keyword tier, or the moderation service scoring
	// self-harm at or above the configured severity.
	if s.Detection.Level == detector.TierCritical ||
		moderation.MaxSelfHarmSeverity(s.Categories) >= e.selfHarmSeverity {
		return models.RiskCrisis, true
	}

	// Rule 2: suicidal ideation paired with immediacy language.
	if ideation && detector.HasImmediacy(s.Text) {
		return models.RiskCrisis, false
	}

	// Rule 3: high keyword tier, ideation alone, self-harm with severe
	// distress, or the tracked state already reading crisis. The tier check
	// matters on its own: operators can extend the configured tiers with
	// phrases the fixed groups don't cover.
	if s.Detection.Level == detector.TierHigh || ideation ||
		(selfHarm && distress) || s.State.RiskLevel == models.RiskCrisis {
		return models.RiskHigh, false
	}

	// Rule 4: any single elevated signal.
	if s.Detection.Level == detector.TierMedium || selfHarm || distress ||
		detector.HasHopelessness(s.Text) || s.State.RiskLevel == models.RiskHigh {
		return models.RiskMedium, false
	}

	return models.RiskLow, false
}

func resourcesFor(level models.RiskLevel, degraded bool) []string {
	switch {
	case level.AtLeast(models.RiskHigh):
		return detector.EmergencyResources()
	case level == models.RiskMedium || degraded:
		return []string{
			"988 Suicide & Crisis Lifeline (call or text 988, 24/7)",
			"You can talk to a counselor anytime - would you like help finding one?",
		}
	default:
		return []string{}
	}
}

func responseTemplate(level models.RiskLevel) string {
	switch level {
	case models.RiskCrisis:
		return "I'm really concerned about your safety right now. You don't have to face this alone - please reach out to one of the crisis resources below, they are available 24/7. Would you be willing to contact one of them now?"
	case models.RiskHigh:
		return "It sounds like you're carrying something very heavy. I'm here with you, and there are people trained to help with exactly this. Please consider the resources below."
	case models.RiskMedium:
		return "That sounds really difficult. I'm listening, and I want to check in with you about how you're holding up. Would you like to talk through it?"
	default:
		return "Thank you for sharing that with me. I'm here whenever you want to talk."
	}
}

func flagTypeFor(s Signals) models.FlagType {
	if s.Detection.IsCrisis || detector.HasSuicidalIdeation(s.Text) {
		return models.FlagCrisisIndicator
	}
	if moderation.MaxSelfHarmSeverity(s.Categories) > 0 {
		return models.FlagContentFlagged
	}
	return models.FlagRiskPattern
}

func flagContext(s Signals, level models.RiskLevel) string {
	if len(s.Detection.Indicators) > 0 {
		return s.Detection.Indicators[0]
	}
	if s.Degraded {
		return "assessed with degraded signals"
	}
	return "risk level " + string(level)
}

func actionFor(level models.RiskLevel) string {
	switch level {
	case models.RiskCrisis:
		return "crisis resources surfaced, immediate escalation"
	case models.RiskHigh:
		return "support resources surfaced, follow-up scheduled"
	case models.RiskMedium:
		return "check-in offered"
	default:
		return "logged"
	}
}
