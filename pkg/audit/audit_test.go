package audit

import (
	"context"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishq/praxis/pkg/contextkeys"
	"github.com/praxishq/praxis/pkg/observability"
)

func newTestLogger(t *testing.T) (*Logger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLogger(db, observability.NewLogger(observability.ErrorLevel, os.Stderr)), mock
}

func TestLogger_Record(t *testing.T) {
	logger, mock := newTestLogger(t)

	actorID := int64(1)
	targetID := int64(2)
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(actorID, ActionRoleChange, "user", targetID, "", "req-123").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := contextkeys.WithRequestID(context.Background(), "req-123")
	logger.Record(ctx, Event{
		ActorID:    &actorID,
		Action:     ActionRoleChange,
		TargetType: "user",
		TargetID:   &targetID,
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogger_RecordInsertFailureDoesNotPanic(t *testing.T) {
	logger, mock := newTestLogger(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnError(assert.AnError)

	// Best-effort: a failed insert is logged and swallowed
	logger.Record(context.Background(), Event{Action: ActionLogin})
	assert.NoError(t, mock.ExpectationsWereMet())
}
