// Package store persists enriched readings to the logs table over
// database/sql. PostgreSQL (driver "pgx") is the production target; SQLite
// (driver "sqlite") backs local runs and tests.
//
// Connections are scoped to a single call: each operation opens its own
// handle and closes it before returning. Nothing is pooled across readings.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/couchcryptid/pool-weather-logger/internal/domain"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-log.sql
var insertLogSQL string

//go:embed sql/select-logs.sql
var selectLogsSQL string

// Supported driver names, as registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Limits for Recent.
const (
	DefaultRecentLimit = 100
	MaxRecentLimit     = 1000
)

// Store opens scoped connections to the logs database.
type Store struct {
	driver string
	dsn    string
	logger *slog.Logger
}

// New creates a Store. No connection is made until an operation runs.
func New(driver, dsn string, logger *slog.Logger) *Store {
	return &Store{driver: driver, dsn: dsn, logger: logger}
}

// EnsureSchema creates the logs table and its index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		for _, stmt := range strings.Split(schemaSQL, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%w: apply schema: %w", domain.ErrDatabase, err)
			}
		}
		return nil
	})
}

// WaitForSchema retries EnsureSchema while the database comes up at startup.
func (s *Store) WaitForSchema(ctx context.Context, attempts uint, delay time.Duration) error {
	return retry.Do(
		func() error { return s.EnsureSchema(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("database not ready", "attempt", n+1, "error", err)
		}),
	)
}

// Insert writes one record in its own connection and transaction. Either the
// row is committed or nothing is written.
func (s *Store) Insert(ctx context.Context, rec domain.LogRecord) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin: %w", domain.ErrDatabase, err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after a successful commit

		_, err = tx.ExecContext(ctx, s.rebind(insertLogSQL),
			rec.RecordedAt, rec.TemperatureC, rec.TemperatureF,
			rec.TempC, rec.TempF,
			rec.FeelsLikeC, rec.FeelsLikeF,
			rec.Main, rec.Description,
			rec.HumidityPct, rec.CloudinessPct, rec.WindSpeedMPS,
			rec.WindDirectionDeg, rec.PressureHPa,
		)
		if err != nil {
			return fmt.Errorf("%w: insert log: %w", domain.ErrDatabase, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit: %w", domain.ErrDatabase, err)
		}
		return nil
	})
}

// Recent returns up to limit rows, newest first. A zero since disables the
// lower time bound; it is compared as wall-clock time, so pass it in the zone
// readings are recorded in. limit is clamped to [1, MaxRecentLimit], with zero or
// negative meaning DefaultRecentLimit.
func (s *Store) Recent(ctx context.Context, since time.Time, limit int) ([]domain.LogRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	query := strings.TrimSpace(selectLogsSQL)
	args := []any{}
	if !since.IsZero() {
		query += "\nWHERE recorded_at >= ?"
		args = append(args, since)
	}
	query += "\nORDER BY recorded_at DESC\nLIMIT " + strconv.Itoa(limit)

	var out []domain.LogRecord
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return fmt.Errorf("%w: query logs: %w", domain.ErrDatabase, err)
		}
		defer func() {
			if err := rows.Close(); err != nil {
				s.logger.Error("close log rows", "error", err)
			}
		}()
		out, err = scanRecords(rows)
		return err
	})
	return out, err
}

// withDB opens a single-connection handle, runs fn, and closes the handle on
// every path.
func (s *Store) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	dsn, err := s.driverDSN()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDatabase, err)
	}
	db, err := sql.Open(s.driver, dsn)
	if err != nil {
		return fmt.Errorf("%w: open: %w", domain.ErrDatabase, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Error("db close", "error", err)
		}
	}()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: connect: %w", domain.ErrDatabase, err)
	}
	return fn(db)
}

func (s *Store) driverDSN() (string, error) {
	if s.driver != DriverSQLite {
		return s.dsn, nil
	}
	path := strings.TrimPrefix(s.dsn, "file:")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)", nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanRecords(rows *sql.Rows) ([]domain.LogRecord, error) {
	var out []domain.LogRecord
	for rows.Next() {
		var rec domain.LogRecord
		var recordedAt any
		if err := rows.Scan(
			&recordedAt, &rec.TemperatureC, &rec.TemperatureF,
			&rec.TempC, &rec.TempF,
			&rec.FeelsLikeC, &rec.FeelsLikeF,
			&rec.Main, &rec.Description,
			&rec.HumidityPct, &rec.CloudinessPct, &rec.WindSpeedMPS,
			&rec.WindDirectionDeg, &rec.PressureHPa,
		); err != nil {
			return nil, fmt.Errorf("%w: scan log: %w", domain.ErrDatabase, err)
		}
		t, err := parseTimestamp(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDatabase, err)
		}
		rec.RecordedAt = t
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate logs: %w", domain.ErrDatabase, err)
	}
	return out, nil
}

// timestampLayouts covers what SQLite hands back for a TIMESTAMP column when
// the driver returns text instead of time.Time.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	domain.ReadingTimeLayout,
}

func parseTimestamp(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected recorded_at type %T", v)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse recorded_at %q", s)
}
