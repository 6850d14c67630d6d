package models

// RiskLevel is the ordered escalation severity of a user's current state.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
	RiskCrisis RiskLevel = "crisis"
)

var riskRank = map[RiskLevel]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
	RiskCrisis: 3,
}

// Rank returns the ordinal position of the level; unknown levels rank lowest.
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// AtLeast reports whether r is at or above other in escalation order.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// MaxRiskLevel returns the higher of two levels (max-wins, never averaged).
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Severity grades a logged safety event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityForRisk maps a risk level 1:1 onto flag severity.
func SeverityForRisk(level RiskLevel) Severity {
	switch level {
	case RiskCrisis:
		return SeverityCritical
	case RiskHigh:
		return SeverityHigh
	case RiskMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// FlagType classifies a safety flag.
type FlagType string

const (
	FlagCrisisIndicator FlagType = "crisis_indicator"
	FlagRiskPattern     FlagType = "risk_pattern"
	FlagContentFlagged  FlagType = "content_flagged"
)

// Emotion is one of the six fixed emotion labels, or neutral.
type Emotion string

const (
	EmotionJoy      Emotion = "joy"
	EmotionSadness  Emotion = "sadness"
	EmotionAnger    Emotion = "anger"
	EmotionFear     Emotion = "fear"
	EmotionSurprise Emotion = "surprise"
	EmotionDisgust  Emotion = "disgust"
	EmotionNeutral  Emotion = "neutral"
)

// EmotionLabels lists the six scored labels in a stable order.
var EmotionLabels = []Emotion{
	EmotionJoy,
	EmotionSadness,
	EmotionAnger,
	EmotionFear,
	EmotionSurprise,
	EmotionDisgust,
}

// MoodTrend describes the direction of a user's mood over a pattern window.
type MoodTrend string

const (
	TrendImproving MoodTrend = "improving"
	TrendStable    MoodTrend = "stable"
	TrendDeclining MoodTrend = "declining"
)

// TriggerType classifies a proactive check-in trigger.
type TriggerType string

const (
	TriggerMoodDecline        TriggerType = "mood_decline"
	TriggerStressSpike        TriggerType = "stress_spike"
	TriggerInactivity         TriggerType = "inactivity"
	TriggerConcerningLanguage TriggerType = "concerning_language"
	TriggerScheduled          TriggerType = "scheduled"
)
