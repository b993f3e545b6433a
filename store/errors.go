package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-article-catalog/model"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapError translates driver errors into catalog sentinels. Errors that
// already carry a sentinel pass through untouched.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrIdentityConflict),
		errors.Is(err, model.ErrValidationFailure),
		errors.Is(err, model.ErrStoreUnavailable):
		return err
	case isNoRows(err):
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
	}
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, model.ErrNotFound)
}
