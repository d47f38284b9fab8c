package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, pwd_hash, is_admin, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Email, u.PwdHash, u.IsAdmin, u.CreatedAt)
	return mapPostgresError("users.create", err)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, email, pwd_hash, is_admin, created_at
FROM users WHERE id=$1`
	return r.scanOne(ctx, "users.get_by_id", q, id)
}

// GetByEmail selects a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, email, pwd_hash, is_admin, created_at
FROM users WHERE email=$1`
	return r.scanOne(ctx, "users.get_by_email", q, email)
}

func (r *UserRepo) scanOne(ctx context.Context, op, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PwdHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, mapPostgresError(op, err)
	}
	return &u, nil
}
