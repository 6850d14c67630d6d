package models

import "time"

// SentimentScores is a positive/neutral/negative split summing to ~1.
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// EmotionalAnalysis is the typed output of the sentiment/emotion collaborator
// (or its offline fallback). Emotion scores are each in [0,1].
type EmotionalAnalysis struct {
	Sentiment        SentimentScores     `json:"sentiment"`
	Emotions         map[Emotion]float64 `json:"emotions"`
	KeyPhrases       []string            `json:"key_phrases"`
	StressIndicators []string            `json:"stress_indicators"`
	CopingMechanisms []string            `json:"coping_mechanisms"`
	Fallback         bool                `json:"fallback,omitempty"`
}

// DominantEmotion returns the highest-scoring label when its score exceeds
// threshold, otherwise neutral. Ties resolve in EmotionLabels order.
func (a EmotionalAnalysis) DominantEmotion(threshold float64) Emotion {
	best := EmotionNeutral
	bestScore := threshold
	for _, label := range EmotionLabels {
		if score := a.Emotions[label]; score > bestScore {
			best = label
			bestScore = score
		}
	}
	return best
}

// CrisisDetectionResult is the lexical detector's output.
type CrisisDetectionResult struct {
	CrisisDetected     bool      `json:"crisis_detected"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Indicators         []string  `json:"indicators"`
	RecommendedActions []string  `json:"recommended_actions"`
	EmergencyResources []string  `json:"emergency_resources"`
}

// CategoryScore is one content-safety category with a 0-10 severity.
type CategoryScore struct {
	Category string  `json:"category"`
	Severity float64 `json:"severity"`
}

// SafetyResult is the outcome of a stateless content check.
type SafetyResult struct {
	Safe       bool            `json:"safe"`
	RiskLevel  RiskLevel       `json:"risk_level"`
	Categories []CategoryScore `json:"categories,omitempty"`
	Indicators []string        `json:"indicators,omitempty"`
}

// CrisisResponse is the escalation engine's reply payload.
type CrisisResponse struct {
	RiskLevel        RiskLevel `json:"risk_level"`
	Immediate        bool      `json:"immediate"`
	Resources        []string  `json:"resources"`
	ResponseMessage  string    `json:"response_message"`
	FollowUpRequired bool      `json:"follow_up_required"`
}

// RiskAssessment summarizes per-user risk from the event log and activity.
type RiskAssessment struct {
	RiskLevel          RiskLevel `json:"risk_level"`
	Factors            []string  `json:"factors"`
	Recommendations    []string  `json:"recommendations"`
	MonitoringRequired bool      `json:"monitoring_required"`
}

// MoodPattern is the day-scale mood analysis for one user.
type MoodPattern struct {
	UserID               int64     `json:"user_id"`
	Period               string    `json:"period"`
	AverageMood          float64   `json:"average_mood"`
	MoodTrend            MoodTrend `json:"mood_trend"`
	ConcerningIndicators []string  `json:"concerning_indicators"`
	LastAnalyzed         time.Time `json:"last_analyzed"`
}

// CheckInTrigger signals that a proactive wellbeing prompt should be offered.
type CheckInTrigger struct {
	Type        TriggerType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Threshold   float64     `json:"threshold"`
}
