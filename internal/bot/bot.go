package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/haven-bot/internal/engine"
	"github.com/xaenox/haven-bot/internal/models"
)

// Bot is the thin delivery surface. Every safety decision lives in the
// engine; this layer only routes messages and renders responses.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *engine.Engine
	logger *zap.Logger
}

func New(token string, eng *engine.Engine, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:    api,
		engine: eng,
		logger: logger,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	response, err := b.engine.HandleCrisisDetection(ctx, message.From.ID, message.Text)
	if err != nil {
		b.logger.Warn("Rejected message",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "I couldn't read that message - could you try sending it again?")
		return
	}

	b.sendCrisisResponse(message.Chat.ID, response)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "checkin":
		b.handleCheckIn(ctx, message)
	case "status":
		b.handleStatus(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Hi, I'm Haven. 🌱
I'm here to listen whenever you want to talk - good days, hard days, anything in between.

Just send me a message. Use /help to see what else I can do.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start talking with me
/help - Show this help message
/checkin - Review how the last couple of weeks have felt
/status - A snapshot of how our conversation is going

You can send me anything that's on your mind. If I'm ever worried about you, I'll share resources that can help right away.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleCheckIn(ctx context.Context, message *tgbotapi.Message) {
	pattern, triggers, err := b.engine.AnalyzeUserPatterns(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to analyze patterns",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "I couldn't look back over our conversations just now. Let's try again a bit later.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Over the last %s your mood has been %s", pattern.Period, pattern.MoodTrend))
	if pattern.AverageMood > 0 {
		sb.WriteString(fmt.Sprintf(" (average %.1f/5)", pattern.AverageMood))
	}
	sb.WriteString(".\n")

	if len(triggers) == 0 {
		sb.WriteString("Nothing is standing out as concerning. I'm glad you checked in!")
	} else {
		sb.WriteString("\nA few things I'd like to check in about:\n")
		for _, trigger := range triggers {
			sb.WriteString("• " + trigger.Description + "\n")
		}
	}

	b.sendMessage(message.Chat.ID, sb.String())
}

func (b *Bot) handleStatus(message *tgbotapi.Message) {
	userCtx, ok := b.engine.GetConversationContext(message.From.ID)
	if !ok {
		b.sendMessage(message.Chat.ID, "We haven't talked yet in this session - send me a message to get started.")
		return
	}

	state := userCtx.EmotionalState
	text := fmt.Sprintf("Current mood: %d/5\nDominant feeling: %s\nStress level: %.1f/10",
		state.CurrentMood, state.DominantEmotion, state.StressLevel)

	if len(userCtx.PersonalizedPrompts) > 0 {
		text += "\n\nSomething we could talk about:\n" + userCtx.PersonalizedPrompts[0]
	}

	b.sendMessage(message.Chat.ID, text)
}

func (b *Bot) sendCrisisResponse(chatID int64, response models.CrisisResponse) {
	text := response.ResponseMessage

	if len(response.Resources) > 0 && response.RiskLevel.AtLeast(models.RiskMedium) {
		text += "\n\nResources that can help:\n"
		for _, resource := range response.Resources {
			text += "• " + resource + "\n"
		}
	}

	b.sendMessage(chatID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
