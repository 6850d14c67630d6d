package tracker

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/models"
)

// SessionWindow is the idle gap after which a new session starts. Emotional
// state and safety flags survive the boundary; the rolling message window
// and prompts do not.
const SessionWindow = 24 * time.Hour

const maxKeyThemes = 3

// Tracker owns per-user conversation state. All mutation of one user's
// context runs under that user's lock: concurrent messages for the same
// user apply in arrival order rather than interleaving.
type Tracker struct {
	repo             Repository
	emotionThreshold float64
	logger           *zap.Logger
	now              func() time.Time

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

func New(repo Repository, emotionThreshold float64, logger *zap.Logger) *Tracker {
	return &Tracker{
		repo:             repo,
		emotionThreshold: emotionThreshold,
		logger:           logger,
		now:              time.Now,
		locks:            make(map[int64]*sync.Mutex),
	}
}

// SetClock overrides the time source. Tests only.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Tracker) userLock(userID int64) *sync.Mutex {
	t.lockMu.Lock()
	defer t.lockMu.Unlock()

	lock, ok := t.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[userID] = lock
	}
	return lock
}

// Update applies one analyzed message to the user's context: session
// rollover, message summary, rolling window, emotional state, prompts.
// Returns a snapshot of the updated context.
func (t *Tracker) Update(userID int64, analysis models.EmotionalAnalysis) models.ConversationContext {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()
	ctx := t.loadOrCreate(userID, now)

	if !ctx.LastMessageAt.IsZero() && now.Sub(ctx.LastMessageAt) > SessionWindow {
		t.logger.Info("Starting new session",
			zap.Int64("user_id", userID),
			zap.String("previous_session", ctx.SessionID))
		ctx.SessionID = uuid.New().String()
		ctx.RecentMessages = nil
		ctx.PersonalizedPrompts = nil
	}

	summary := models.MessageSummary{
		Timestamp:     now,
		EmotionalTone: analysis.DominantEmotion(t.emotionThreshold),
		KeyThemes:     keyThemes(analysis),
		UserMood:      MoodScore(analysis.Sentiment),
	}
	ctx.AddMessageSummary(summary)

	ctx.EmotionalState = models.EmotionalState{
		CurrentMood:     summary.UserMood,
		DominantEmotion: summary.EmotionalTone,
		StressLevel:     StressLevel(analysis),
		RiskLevel:       riskFromAnalysis(analysis),
	}

	ctx.PersonalizedPrompts = buildPrompts(summary.EmotionalTone, ctx.RecentMessages)
	ctx.PruneSafetyFlags(now)

	t.repo.Put(ctx)
	return ctx.Clone()
}

// AddSafetyFlag records a flag on the user's context, pruning the 24h window.
func (t *Tracker) AddSafetyFlag(userID int64, flag models.SafetyFlag) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx := t.loadOrCreate(userID, t.now())
	ctx.AddSafetyFlag(flag)
	t.repo.Put(ctx)
}

// Get returns a snapshot of the user's context with the flag window pruned,
// or false when the user has no tracked state yet.
func (t *Tracker) Get(userID int64) (models.ConversationContext, bool) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx, ok := t.repo.Get(userID)
	if !ok {
		return models.ConversationContext{}, false
	}
	ctx.PruneSafetyFlags(t.now())
	t.repo.Put(ctx)
	return ctx.Clone(), true
}

// Patch applies a caller-supplied mutation under the user's lock. Used by
// the context-update operation; fn sees the live context.
func (t *Tracker) Patch(userID int64, fn func(*models.ConversationContext)) models.ConversationContext {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx := t.loadOrCreate(userID, t.now())
	fn(ctx)
	ctx.PruneSafetyFlags(t.now())
	t.repo.Put(ctx)
	return ctx.Clone()
}

// Reset discards the user's context. Recovery path for corrupted state:
// log, reset, continue.
func (t *Tracker) Reset(userID int64) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	t.logger.Warn("Resetting conversation context", zap.Int64("user_id", userID))
	t.repo.Delete(userID)
}

func (t *Tracker) loadOrCreate(userID int64, now time.Time) *models.ConversationContext {
	if ctx, ok := t.repo.Get(userID); ok {
		return ctx
	}
	return &models.ConversationContext{
		UserID:    userID,
		SessionID: uuid.New().String(),
		EmotionalState: models.EmotionalState{
			CurrentMood:     3,
			DominantEmotion: models.EmotionNeutral,
			RiskLevel:       models.RiskLow,
		},
	}
}

// MoodScore maps a sentiment split onto the 1-5 mood scale:
// clamp(round(1 + 4*positive - 2*negative), 1, 5).
func MoodScore(s models.SentimentScores) int {
	mood := int(math.Round(1 + 4*s.Positive - 2*s.Negative))
	if mood < 1 {
		return 1
	}
	if mood > 5 {
		return 5
	}
	return mood
}

// StressLevel combines fear/anger/sadness with the stress-indicator count
// onto the 0-10 scale. The emotion mix contributes up to 7 points and the
// indicator count up to 3, so the result stays in range for any valid input.
func StressLevel(a models.EmotionalAnalysis) float64 {
	mix := 0.45*a.Emotions[models.EmotionFear] +
		0.35*a.Emotions[models.EmotionAnger] +
		0.20*a.Emotions[models.EmotionSadness]

	indicators := float64(len(a.StressIndicators))
	if indicators > 5 {
		indicators = 5
	}

	stress := mix*7 + indicators*0.6
	if stress > 10 {
		stress = 10
	}
	if stress < 0 {
		stress = 0
	}
	return stress
}

func riskFromAnalysis(a models.EmotionalAnalysis) models.RiskLevel {
	negative := a.Sentiment.Negative
	indicators := len(a.StressIndicators)

	switch {
	case negative > 0.9 && indicators > 3:
		return models.RiskCrisis
	case negative > 0.7 && indicators > 2:
		return models.RiskHigh
	case negative > 0.5 || indicators > 1:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func keyThemes(a models.EmotionalAnalysis) []string {
	themes := make([]string, 0, maxKeyThemes)
	seen := make(map[string]struct{})
	for _, phrase := range a.KeyPhrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		themes = append(themes, phrase)
		if len(themes) == maxKeyThemes {
			break
		}
	}
	return themes
}
