package db

import "errors"

var (
	ErrMissingConnString = errors.New("db: connection string is empty")
	ErrParseConfig       = errors.New("db: failed to parse database configuration")
	ErrConnect           = errors.New("db: failed to open database connection")
	ErrSetDialect        = errors.New("db migrator: failed to set dialect")
	ErrApplyMigrations   = errors.New("db migrator: failed to apply migrations")
)
