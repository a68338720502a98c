package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS callback_attempts (
	attempt_id      UUID PRIMARY KEY,
	request_id      TEXT NOT NULL,
	destination     TEXT NOT NULL,
	target_language TEXT NOT NULL,
	payload_kind    TEXT NOT NULL,
	attempt         INTEGER NOT NULL,
	status          TEXT NOT NULL,
	status_code     INTEGER NOT NULL DEFAULT 0,
	response_body   TEXT NOT NULL DEFAULT '',
	error_message   TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	worker_name     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_callback_attempts_request_id ON callback_attempts (request_id, created_at);
`

// Postgres persists delivery attempts in the callback_attempts table
type Postgres struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgres creates a new Postgres delivery log
func NewPostgres(db *sqlx.DB, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the attempts table if it does not exist
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create callback_attempts schema: %w", err)
	}
	return nil
}

// Record inserts one delivery attempt
func (s *Postgres) Record(ctx context.Context, attempt *Attempt) error {
	query := `
		INSERT INTO callback_attempts (
			attempt_id, request_id, destination, target_language,
			payload_kind, attempt, status, status_code,
			response_body, error_message, duration_ms, worker_name, created_at
		) VALUES (
			:attempt_id, :request_id, :destination, :target_language,
			:payload_kind, :attempt, :status, :status_code,
			:response_body, :error_message, :duration_ms, :worker_name, :created_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	s.logger.Debug("Delivery attempt recorded",
		slog.String("attempt_id", attempt.AttemptID),
		slog.String("request_id", attempt.RequestID),
		slog.String("status", attempt.Status),
	)

	return nil
}

// ListByRequest returns all attempts for a tracking code, oldest first
func (s *Postgres) ListByRequest(ctx context.Context, requestID string) ([]Attempt, error) {
	query := `
		SELECT attempt_id, request_id, destination, target_language,
		       payload_kind, attempt, status, status_code,
		       response_body, error_message, duration_ms, worker_name, created_at
		FROM callback_attempts
		WHERE request_id = $1
		ORDER BY created_at ASC
	`

	attempts := make([]Attempt, 0)
	if err := s.db.SelectContext(ctx, &attempts, query, requestID); err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}

	return attempts, nil
}
