package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Detector DetectorConfig `mapstructure:"detector"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	Patterns PatternsConfig `mapstructure:"patterns"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// DetectorConfig is the versioned keyword-tier policy for the lexical
// detector. Tiers are matched as case-insensitive substrings; defaults are
// applied when a tier is left empty so the engine works with no config file.
type DetectorConfig struct {
	Version  string   `mapstructure:"version"`
	Critical []string `mapstructure:"critical"`
	High     []string `mapstructure:"high"`
	Medium   []string `mapstructure:"medium"`
}

// SafetyConfig holds tracker and escalation thresholds.
type SafetyConfig struct {
	EmotionThreshold    float64 `mapstructure:"emotion_threshold"`
	SelfHarmSeverity    float64 `mapstructure:"self_harm_severity"`
	NegativeLanguageMax int     `mapstructure:"negative_language_max"`
	IsolationMax        int     `mapstructure:"isolation_max"`
	EventLogCap         int     `mapstructure:"event_log_cap"`
	ContextIdleHours    int     `mapstructure:"context_idle_hours"`
}

// PatternsConfig holds check-in trigger thresholds.
type PatternsConfig struct {
	WindowDays          int     `mapstructure:"window_days"`
	InactivityDays      int     `mapstructure:"inactivity_days"`
	DeclineSeverity     float64 `mapstructure:"decline_severity"`
	DeclineHighSeverity float64 `mapstructure:"decline_high_severity"`
	StressThreshold     float64 `mapstructure:"stress_threshold"`
	LanguageThreshold   float64 `mapstructure:"language_threshold"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.timeout_seconds", 10)
	v.SetDefault("openai.max_retries", 2)

	v.SetDefault("detector.version", "2024-06")
	v.SetDefault("detector.critical", []string{
		"kill myself",
		"end my life",
		"want to die",
		"suicide plan",
		"better off dead",
		"no reason to live",
	})
	v.SetDefault("detector.high", []string{
		"hurt myself",
		"self-harm",
		"self harm",
		"cut myself",
		"can't go on",
		"give up on everything",
	})
	v.SetDefault("detector.medium", []string{
		"hopeless",
		"worthless",
		"no point anymore",
		"can't take it",
		"nobody cares",
	})

	v.SetDefault("safety.emotion_threshold", 0.3)
	v.SetDefault("safety.self_harm_severity", 6.0)
	v.SetDefault("safety.negative_language_max", 3)
	v.SetDefault("safety.isolation_max", 2)
	v.SetDefault("safety.event_log_cap", 50)
	v.SetDefault("safety.context_idle_hours", 72)

	v.SetDefault("patterns.window_days", 14)
	v.SetDefault("patterns.inactivity_days", 7)
	v.SetDefault("patterns.decline_severity", 0.3)
	v.SetDefault("patterns.decline_high_severity", 0.6)
	v.SetDefault("patterns.stress_threshold", 3.5)
	v.SetDefault("patterns.language_threshold", 0.4)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		// Defaults always unmarshal cleanly.
		panic(err)
	}
	return &config
}
