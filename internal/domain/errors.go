package domain

import (
	"errors"
	"fmt"
)

// Failure classes for a single line. Adapters wrap these with %w so the
// pipeline can classify an error with errors.Is without knowing its source.
var (
	// ErrDecode marks input that could not be understood: a malformed
	// receiver line, a bad timestamp, or a weather response missing fields.
	ErrDecode = errors.New("decode error")

	// ErrLineTooLong marks a receiver line that exceeded the line size
	// limit and was discarded. It is a decode failure of that one line.
	ErrLineTooLong = fmt.Errorf("%w: line too long", ErrDecode)

	// ErrNetwork marks a weather provider that was unreachable, timed out,
	// or answered with a non-success status.
	ErrNetwork = errors.New("network error")

	// ErrEnrich marks a reading that could not be persisted because its
	// weather snapshot could not be fetched.
	ErrEnrich = errors.New("weather enrichment failed")

	// ErrDatabase marks a connection, insert, or commit failure.
	ErrDatabase = errors.New("database error")
)
