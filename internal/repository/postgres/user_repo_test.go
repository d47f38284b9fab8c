package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     "ana@example.com",
		PwdHash:   "$argon2id$...",
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO users \(id, email, pwd_hash, is_admin, created_at\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.ID, u.Email, u.PwdHash, false, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Email, u.PwdHash, false, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT id, email, pwd_hash, is_admin, created_at FROM users WHERE email=\$1`).
		WithArgs("ana@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "pwd_hash", "is_admin", "created_at"}).
			AddRow(id, "ana@example.com", "h", true, now))
	u, err := r.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.True(t, u.IsAdmin)

	mock.ExpectQuery(`SELECT id, email, pwd_hash, is_admin, created_at FROM users WHERE email=\$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(context.DeadlineExceeded)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Lifecycle(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Now()
	s := &model.Session{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    uuid.Must(uuid.NewV4()),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	mock.ExpectExec(`INSERT INTO sessions \(id, user_id, created_at, expires_at\)`).
		WithArgs(s.ID, s.UserID, s.CreatedAt, s.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, s))

	mock.ExpectQuery(`SELECT s.id, s.user_id, u.email, u.is_admin, s.created_at, s.expires_at FROM sessions s JOIN users u`).
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "email", "is_admin", "created_at", "expires_at"}).
			AddRow(s.ID, s.UserID, "ana@example.com", false, s.CreatedAt, s.ExpiresAt))
	got, err := r.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", got.Email)
	require.Empty(t, got.Token)

	mock.ExpectExec(`DELETE FROM sessions WHERE id=\$1`).
		WithArgs(s.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, s.ID))

	mock.ExpectExec(`DELETE FROM sessions WHERE id=\$1`).
		WithArgs(s.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, s.ID), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := r.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}
