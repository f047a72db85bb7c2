package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"garage-backend/internal/apperr"
)

const uniqueViolation = "23505"

// mapError turns driver errors into the shared error values.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "clients_phone_key":
			return apperr.ErrDuplicatePhone
		case "users_email_key":
			return apperr.ErrDuplicateEmail
		}
	}
	return err
}
