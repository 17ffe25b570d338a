//go:build sqlite_cgo

package repo

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

const sqliteDriver = "sqlite3"

func sqliteUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
