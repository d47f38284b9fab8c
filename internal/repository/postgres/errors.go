package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/vazadinhas/internal/errs"
)

// mapPostgresError converts driver errors into domain sentinels where one applies
// and wraps everything else as a persistence failure for op.
func mapPostgresError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errs.Persistence(op, err)
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", errs.ErrNotFound, pgErr.Detail)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return errs.Persistence(op, fmt.Errorf("constraint %s: %w", pgErr.ConstraintName, err))
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return errs.Persistence(op, fmt.Errorf("transaction conflict (retryable): %w", err))
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return errs.Persistence(op, fmt.Errorf("database connection: %w", err))
	}
	return errs.Persistence(op, err)
}
