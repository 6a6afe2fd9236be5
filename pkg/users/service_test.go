package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/praxishq/praxis/pkg/auth"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	resolver := auth.NewResolver(store, 0, 0, nil)
	return NewService(store, hasher, resolver), mock
}

func TestService_Register_PasswordTooShort(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterRequest{
		Email:    "a@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestService_Register_InvalidEmail(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterRequest{
		Email:    "not-an-email",
		Password: "long enough password",
	})
	assert.Error(t, err)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	service, mock := newTestService(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("taken@example.com").
		WillReturnRows(userRows().AddRow(
			int64(9), "taken@example.com", "", "digest",
			pq.Array([]string{"User"}), nil, true, now, now,
		))

	_, err := service.Register(context.Background(), RegisterRequest{
		Email:    "Taken@Example.com",
		Password: "long enough password",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestService_Authenticate(t *testing.T) {
	service, mock := newTestService(t)

	digest, err := bcrypt.GenerateFromPassword([]byte("right password"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	row := func() *sqlmock.Rows {
		return userRows().AddRow(
			int64(1), "a@example.com", "Alice", string(digest),
			pq.Array([]string{"User"}), nil, true, now, now,
		)
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("a@example.com").WillReturnRows(row())
	user, err := service.Authenticate(context.Background(), "a@example.com", "right password")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("a@example.com").WillReturnRows(row())
	_, err = service.Authenticate(context.Background(), "a@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ghost@example.com").WillReturnRows(userRows())
	_, err = service.Authenticate(context.Background(), "ghost@example.com", "right password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_DeactivatedAccount(t *testing.T) {
	service, mock := newTestService(t)

	digest, err := bcrypt.GenerateFromPassword([]byte("right password"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("a@example.com").
		WillReturnRows(userRows().AddRow(
			int64(1), "a@example.com", "Alice", string(digest),
			pq.Array([]string{"User"}), nil, false, now, now,
		))

	_, err = service.Authenticate(context.Background(), "a@example.com", "right password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_SetRoles_RejectsUnknownRole(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.SetRoles(context.Background(), 1, []string{"Superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}
