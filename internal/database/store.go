// Package database provides storage backends for the subscription store.
package database

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by GetSetting when the key is absent.
var ErrNotFound = errors.New("setting not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Open picks a backend from the DSN: postgres:// and postgresql:// URLs go to
// PostgreSQL, anything else is treated as an SQLite file path.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgres(dsn)
	}
	return New(dsn)
}
