package models

import "time"

const (
	// RecentMessageCap bounds the rolling window of tracked message summaries.
	RecentMessageCap = 5
	// PromptCap bounds regenerated personalized prompts.
	PromptCap = 5
	// FlagWindow is how long a safety flag stays visible on a conversation context.
	FlagWindow = 24 * time.Hour
)

// MessageSummary is the tracked digest of one user message.
type MessageSummary struct {
	Timestamp     time.Time `json:"timestamp"`
	EmotionalTone Emotion   `json:"emotional_tone"`
	KeyThemes     []string  `json:"key_themes"`
	UserMood      int       `json:"user_mood"` // 1-5
}

// EmotionalState is the derived per-user emotional summary.
type EmotionalState struct {
	CurrentMood     int       `json:"current_mood"` // 1-5
	DominantEmotion Emotion   `json:"dominant_emotion"`
	StressLevel     float64   `json:"stress_level"` // 0-10
	RiskLevel       RiskLevel `json:"risk_level"`
}

// SafetyFlag records a detected concern for one user.
type SafetyFlag struct {
	ID          string    `json:"id"`
	Type        FlagType  `json:"type"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Context     string    `json:"context"`
	ActionTaken string    `json:"action_taken"`
}

// ConversationContext is the per-user tracked state. One exists per user,
// created lazily on the first message.
type ConversationContext struct {
	UserID              int64            `json:"user_id"`
	SessionID           string           `json:"session_id"`
	RecentMessages      []MessageSummary `json:"recent_messages"`
	EmotionalState      EmotionalState   `json:"emotional_state"`
	PersonalizedPrompts []string         `json:"personalized_prompts"`
	SafetyFlags         []SafetyFlag     `json:"safety_flags"`
	LastMessageAt       time.Time        `json:"last_message_at"`
}

// Clone returns a copy whose slices share no backing arrays with c, so a
// snapshot stays stable when the live context is pruned or appended to later.
func (c *ConversationContext) Clone() ConversationContext {
	out := *c
	if c.RecentMessages != nil {
		out.RecentMessages = append([]MessageSummary(nil), c.RecentMessages...)
	}
	if c.PersonalizedPrompts != nil {
		out.PersonalizedPrompts = append([]string(nil), c.PersonalizedPrompts...)
	}
	if c.SafetyFlags != nil {
		out.SafetyFlags = append([]SafetyFlag(nil), c.SafetyFlags...)
	}
	return out
}

// AddMessageSummary appends a summary, evicting the oldest beyond capacity.
func (c *ConversationContext) AddMessageSummary(s MessageSummary) {
	c.RecentMessages = append(c.RecentMessages, s)
	if len(c.RecentMessages) > RecentMessageCap {
		c.RecentMessages = c.RecentMessages[len(c.RecentMessages)-RecentMessageCap:]
	}
	c.LastMessageAt = s.Timestamp
}

// AddSafetyFlag appends a flag and prunes entries older than the 24h window.
func (c *ConversationContext) AddSafetyFlag(f SafetyFlag) {
	c.SafetyFlags = append(c.SafetyFlags, f)
	c.PruneSafetyFlags(f.Timestamp)
}

// PruneSafetyFlags drops flags older than FlagWindow relative to now.
func (c *ConversationContext) PruneSafetyFlags(now time.Time) {
	cutoff := now.Add(-FlagWindow)
	kept := c.SafetyFlags[:0]
	for _, f := range c.SafetyFlags {
		if f.Timestamp.After(cutoff) {
			kept = append(kept, f)
		}
	}
	c.SafetyFlags = kept
}
