package dbutil

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Finalize rebinds gendry's mysql-style placeholders to $N, which both the
// postgres and sqlite drivers accept.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	if liteErr, ok := err.(*sqlite.Error); ok {
		// SQLITE_CONSTRAINT_PRIMARYKEY / SQLITE_CONSTRAINT_UNIQUE
		return liteErr.Code() == 1555 || liteErr.Code() == 2067
	}
	return false
}
