package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isConstraint reports a 23505 raised by one specific named constraint.
func isConstraint(err error, name string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == name
}

// isForeignKeyOn reports a 23503 raised by one specific named constraint.
func isForeignKeyOn(err error, name string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == name
}
