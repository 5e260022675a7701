package pipeline

import (
	"errors"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
)

// OutcomeKind classifies how one receiver line was handled.
type OutcomeKind string

const (
	OutcomeLogged      OutcomeKind = "logged"
	OutcomeSkipped     OutcomeKind = "skipped"
	OutcomeDecodeError OutcomeKind = "decode_error"
	OutcomeEnrichError OutcomeKind = "enrich_error"
	OutcomeWriteError  OutcomeKind = "write_error"
)

// Outcome is the result of processing a single line. Every line produces
// exactly one, and none of them stop the loop.
type Outcome struct {
	Kind    OutcomeKind
	Line    string
	Reading domain.Reading
	Record  domain.LogRecord // set when Kind is OutcomeLogged
	Err     error
}

// IsError reports whether the line failed.
func (o Outcome) IsError() bool {
	return o.Err != nil
}

// classifyWriteError maps a writer failure onto an outcome kind.
func classifyWriteError(err error) OutcomeKind {
	switch {
	case errors.Is(err, domain.ErrEnrich):
		return OutcomeEnrichError
	case errors.Is(err, domain.ErrDecode):
		return OutcomeDecodeError
	default:
		return OutcomeWriteError
	}
}
