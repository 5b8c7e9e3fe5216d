package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUndefinedColumnErr reports whether err is Postgres complaining about a
// missing column or table, which usually means migrations have not run.
func IsUndefinedColumnErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42703 = undefined_column
		// 42P01 = undefined_table
		return pgErr.Code == "42703" || pgErr.Code == "42P01"
	}
	return false
}
