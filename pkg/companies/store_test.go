package companies

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO companies").
		WithArgs("Acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), true, now, now))

	store := NewStore(db)
	company := &Company{Name: "Acme"}
	require.NoError(t, store.Create(context.Background(), company))
	assert.Equal(t, int64(1), company.ID)

	mock.ExpectQuery("SELECT (.+) FROM companies WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), "Acme", true, now, now))

	got, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM companies WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "updated_at"}))

	store := NewStore(db)
	got, err := store.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_MemberIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users WHERE company_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)).AddRow(int64(11)))

	store := NewStore(db)
	ids, err := store.MemberIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, ids)
}

func TestStore_AssignAndRemoveMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectExec("UPDATE users SET company_id = \\$1").
		WithArgs(int64(1), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.AssignMember(context.Background(), 1, 10))

	mock.ExpectExec("UPDATE users SET company_id = NULL").
		WithArgs(int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.RemoveMember(context.Background(), 1, 10))

	// removing a user who is not a member reads as not found
	mock.ExpectExec("UPDATE users SET company_id = NULL").
		WithArgs(int64(11), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.RemoveMember(context.Background(), 1, 11)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CompanyIDForSubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery("SELECT company_id FROM users WHERE id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow(int64(3)))
	id, err := store.CompanyIDForSubject(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	// NULL company reads as 0, not an error
	mock.ExpectQuery("SELECT company_id FROM users WHERE id").
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow(nil))
	id, err = store.CompanyIDForSubject(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	// Unknown subject reads as 0 as well
	mock.ExpectQuery("SELECT company_id FROM users WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}))
	id, err = store.CompanyIDForSubject(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
}

func TestStore_SoftDelete_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE companies SET is_active = false").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.SoftDelete(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
