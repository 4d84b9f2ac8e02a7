// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios. For example, ErrConflict signals that a block instance
// could not be reserved because its availability flag was already off,
// while the per-entity not-found sentinels map to HTTP 404 responses.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a conditional write changed no rows
// because the row was not in the expected state, most importantly when
// reserving a block instance whose available flag is already FALSE.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// MySQL server error numbers for duplicate keys and foreign key
// violations on delete.
const (
	mysqlErrDupEntry      = 1062
	mysqlErrRowReferenced = 1451
)

// asConflict maps duplicate-key and referenced-row driver errors to
// ErrConflict so callers can branch with errors.Is. Other errors pass
// through unchanged.
func asConflict(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrDupEntry || me.Number == mysqlErrRowReferenced) {
		return ErrConflict
	}
	return err
}
