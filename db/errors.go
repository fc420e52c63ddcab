package db

import "fmt"

// Common errors
var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrUnknownCollection  = fmt.Errorf("unknown collection")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")
	ErrMigrationFailed    = fmt.Errorf("migration failed")
)
