package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xaenox/haven-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) SaveSummary(ctx context.Context, userID int64, summary models.MessageSummary) error {
	query := `
		INSERT INTO message_summaries (user_id, emotional_tone, key_themes, user_mood, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		string(summary.EmotionalTone),
		pq.Array(summary.KeyThemes),
		summary.UserMood,
		summary.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error saving message summary: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetRecentSummaries(ctx context.Context, userID int64, since time.Time) ([]models.MessageSummary, error) {
	query := `
		SELECT emotional_tone, key_themes, user_mood, created_at
		FROM message_summaries
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error querying message summaries: %v", err)
	}
	defer rows.Close()

	var summaries []models.MessageSummary
	for rows.Next() {
		var summary models.MessageSummary
		var tone string
		err := rows.Scan(
			&tone,
			pq.Array(&summary.KeyThemes),
			&summary.UserMood,
			&summary.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message summary: %v", err)
		}
		summary.EmotionalTone = models.Emotion(tone)
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

func (s *PostgresStorage) SaveEvent(ctx context.Context, userID int64, flag models.SafetyFlag) error {
	query := `
		INSERT INTO safety_events (id, user_id, flag_type, severity, context, action_taken, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		flag.ID,
		userID,
		string(flag.Type),
		string(flag.Severity),
		flag.Context,
		flag.ActionTaken,
		flag.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error saving safety event: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetEvents(ctx context.Context, userID int64, since time.Time) ([]models.SafetyFlag, error) {
	query := `
		SELECT id, flag_type, severity, context, action_taken, created_at
		FROM safety_events
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error querying safety events: %v", err)
	}
	defer rows.Close()

	var flags []models.SafetyFlag
	for rows.Next() {
		var flag models.SafetyFlag
		var flagType, severity string
		err := rows.Scan(
			&flag.ID,
			&flagType,
			&severity,
			&flag.Context,
			&flag.ActionTaken,
			&flag.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning safety event: %v", err)
		}
		flag.Type = models.FlagType(flagType)
		flag.Severity = models.Severity(severity)
		flags = append(flags, flag)
	}

	return flags, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
