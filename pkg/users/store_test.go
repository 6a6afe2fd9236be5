package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "roles", "company_id", "is_active", "created_at", "updated_at",
	})
}

func TestStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@example.com", "Alice", "digest", pq.Array([]string{"User"}), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), true, time.Now(), time.Now()))

	store := NewStore(db)
	user := &User{Email: "a@example.com", Name: "Alice", PasswordHash: "digest", Roles: []string{"User"}}
	require.NoError(t, store.Create(context.Background(), user))

	assert.Equal(t, int64(1), user.ID)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), "a@example.com", "Alice", "digest",
			pq.Array([]string{"User", "Admin"}), nil, true, now, now,
		))

	store := NewStore(db)
	user, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "a@example.com", user.Email)
	assert.Equal(t, []string{"User", "Admin"}, user.Roles)
	assert.Nil(t, user.CompanyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(userRows())

	store := NewStore(db)
	user, err := store.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestStore_UpdateRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET roles").
		WithArgs(pq.Array([]string{"Site Admin", "User"}), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.UpdateRoles(context.Background(), 1, []string{"Site Admin", "User"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateRoles_MissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET roles").
		WithArgs(pq.Array([]string{"User"}), int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.UpdateRoles(context.Background(), 404, []string{"User"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET is_active = false").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.SoftDelete(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LookupSubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), "a@example.com", "Alice", "digest",
			pq.Array([]string{"Admin"}), nil, false, now, now,
		))

	store := NewStore(db)
	subject, err := store.LookupSubject(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, subject)

	// Deactivation is surfaced, not filtered; the resolver decides what
	// inactive means
	assert.False(t, subject.Active)
	assert.Equal(t, []string{"Admin"}, subject.Roles)
}

func TestStore_LookupSubject_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(userRows())

	store := NewStore(db)
	subject, err := store.LookupSubject(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, subject)
}
