package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"wayfare/api/internal/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate maps storage-level failures onto the API error taxonomy so
// postgres detail never reaches a caller. Unique violations become
// conflicts, foreign-key violations name the broken reference, and
// anything else is a generic internal error.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "already exists", err)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindBadRequest,
				fmt.Sprintf("invalid reference: %s", pgErr.ConstraintName), err)
		}
	}

	return apperr.Wrap(apperr.KindInternal, op, err)
}
