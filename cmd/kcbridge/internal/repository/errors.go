package repository

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateMapping is returned when an external role is already mapped.
	ErrDuplicateMapping = errors.New("external role already mapped")

	// ErrInvalidMapping is returned when a mapping fails validation.
	ErrInvalidMapping = errors.New("invalid role mapping")

	// ErrDuplicateUser is returned when an email is already registered.
	ErrDuplicateUser = errors.New("admin user already exists")

	// ErrDuplicateRole is returned when a role code is already taken.
	ErrDuplicateRole = errors.New("admin role already exists")
)

// isUniqueViolation reports whether err is a unique/primary key violation on
// either supported dialect.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
