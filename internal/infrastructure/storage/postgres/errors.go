package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"branchstock/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the engine reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// MapError converts driver errors into application errors.
// AppErrors pass through untouched.
func MapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewValidation("referenced record does not exist").
				WithDetail("constraint", pgErr.ConstraintName).WithCause(err)
		case pgCheckViolation:
			return apperror.NewValidation("check constraint violated").
				WithDetail("constraint", pgErr.ConstraintName).WithCause(err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return apperror.NewConcurrentModification("transaction", pgErr.Code).WithCause(err)
		case pgQueryCanceled:
			return apperror.NewTimeout(err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.NewTimeout(err)
	}
	if errors.Is(err, context.Canceled) {
		return apperror.NewTimeout(err)
	}

	return apperror.NewInternal(err)
}
