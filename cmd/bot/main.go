package main

import (
	"time"

	"github.com/xaenox/haven-bot/internal/bot"
	"github.com/xaenox/haven-bot/internal/detector"
	"github.com/xaenox/haven-bot/internal/engine"
	"github.com/xaenox/haven-bot/internal/moderation"
	"github.com/xaenox/haven-bot/internal/patterns"
	"github.com/xaenox/haven-bot/internal/risk"
	"github.com/xaenox/haven-bot/internal/safetylog"
	"github.com/xaenox/haven-bot/internal/sentiment"
	"github.com/xaenox/haven-bot/internal/storage"
	"github.com/xaenox/haven-bot/internal/tracker"
	"github.com/xaenox/haven-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the safety pipeline
	det := detector.New(cfg.Detector)
	logger.Info("Loaded detection policy", zap.String("version", det.Version()))

	analyzer := sentiment.NewGPTAnalyzer(cfg.OpenAI, logger)
	checker := moderation.NewOpenAIChecker(cfg.OpenAI, logger)
	contexts := tracker.NewMemoryRepository()
	trk := tracker.New(contexts, cfg.Safety.EmotionThreshold, logger)

	// Idle contexts are evicted on a schedule so memory stays bounded.
	maxIdle := time.Duration(cfg.Safety.ContextIdleHours) * time.Hour
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for now := range ticker.C {
			if evicted := contexts.EvictIdle(maxIdle, now); evicted > 0 {
				logger.Info("Evicted idle conversation contexts", zap.Int("count", evicted))
			}
		}
	}()

	eventLog := safetylog.New(
		cfg.Safety.EventLogCap,
		cfg.Safety.NegativeLanguageMax,
		cfg.Safety.IsolationMax,
		logger,
		safetylog.WithEventStore(store),
	)
	assessor := risk.NewEngine(cfg.Safety.SelfHarmSeverity, logger)
	patternAnalyzer := patterns.New(store, cfg.Patterns, logger)

	eng := engine.New(det, analyzer, checker, trk, eventLog, assessor, patternAnalyzer, store, logger)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, eng, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
