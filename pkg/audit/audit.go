// Package audit records security-relevant events (logins, impersonations,
// role changes, deletions) to postgres. Recording is best-effort: an audit
// insert failure is logged but never fails the request that triggered it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/praxishq/praxis/pkg/contextkeys"
	"github.com/praxishq/praxis/pkg/observability"
)

// Audited actions
const (
	ActionLogin         = "login"
	ActionLoginFailed   = "login_failed"
	ActionImpersonate   = "impersonate"
	ActionRoleChange    = "role_change"
	ActionUserDelete    = "user_delete"
	ActionCompanyDelete = "company_delete"
)

// Event is a single audit record
type Event struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder writes audit events. Satisfied by *Logger; handlers depend on the
// interface so tests can capture events without a database.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Logger is the postgres-backed audit recorder
type Logger struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewLogger creates an audit logger
func NewLogger(db *sql.DB, logger *observability.Logger) *Logger {
	return &Logger{db: db, logger: logger}
}

// CreateSchema creates the audit_events table if it does not exist
func (l *Logger) CreateSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id BIGSERIAL PRIMARY KEY,
			actor_id BIGINT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL DEFAULT '',
			target_id BIGINT,
			detail TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating audit_events table: %w", err)
	}
	return nil
}

// Record inserts an audit event. The request ID is taken from context when
// the event does not carry one.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_events (actor_id, action, target_type, target_id, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ActorID, event.Action, event.TargetType, event.TargetID, event.Detail, event.RequestID)
	if err != nil {
		l.logger.WithError(err).WithField("action", event.Action).Error("failed to record audit event")
	}
}

// List returns the most recent audit events, newest first
func (l *Logger) List(ctx context.Context, limit, offset int) ([]*Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, actor_id, action, target_type, target_id, detail, request_id, created_at
		FROM audit_events ORDER BY id DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(
			&event.ID, &event.ActorID, &event.Action, &event.TargetType,
			&event.TargetID, &event.Detail, &event.RequestID, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
