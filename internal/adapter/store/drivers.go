package store

// Registers the "pgx" and "sqlite" database/sql drivers.
import (
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)
