package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
)

// ErrStreamEnded is returned by Run when the receiver closes its output.
var ErrStreamEnded = errors.New("receiver stream ended")

// LineSource yields receiver output one line at a time. An error wrapping
// domain.ErrDecode means one line was unreadable and the source can go on.
type LineSource interface {
	Next(ctx context.Context) (string, error)
}

// RecordWriter enriches and persists an accepted reading.
type RecordWriter interface {
	Insert(ctx context.Context, recordedAt time.Time, poolTempC float64) (domain.LogRecord, error)
}

// RecordPublisher forwards committed records downstream.
type RecordPublisher interface {
	Publish(ctx context.Context, rec domain.LogRecord) error
}

// Pipeline reads receiver lines strictly in order and handles each to
// completion before reading the next.
type Pipeline struct {
	source    LineSource
	filter    domain.Filter
	location  *time.Location
	writer    RecordWriter
	publisher RecordPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. loc is the zone of the receiver's naive timestamps
// (nil means UTC). publisher may be nil.
func New(source LineSource, filter domain.Filter, loc *time.Location, writer RecordWriter, publisher RecordPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		filter:    filter,
		location:  loc,
		writer:    writer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the receiver has produced a line.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no receiver output yet")
	}
	return nil
}

// Run consumes the source until ctx is cancelled (returns nil), the source
// is exhausted (returns ErrStreamEnded), or reading fails. A source error
// wrapping domain.ErrDecode fails only the line it belongs to.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"model_prefix", p.filter.ModelPrefix,
		"sensor_id", p.filter.SensorID,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		line, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				p.logger.Warn("receiver output closed")
				return ErrStreamEnded
			}
			if !errors.Is(err, domain.ErrDecode) {
				return fmt.Errorf("read receiver: %w", err)
			}
		}

		p.ready.Store(true)
		p.metrics.LinesRead.Inc()
		if err != nil {
			// The source consumed an unreadable line; only that line fails.
			p.report(Outcome{Kind: OutcomeDecodeError, Line: line, Err: err})
			continue
		}
		p.report(p.ProcessLine(ctx, line))
	}
}

// ProcessLine decodes, filters, and persists one line. It never panics on
// bad input and never returns an error; failures are carried in the Outcome.
func (p *Pipeline) ProcessLine(ctx context.Context, line string) Outcome {
	out := Outcome{Line: line}

	reading, err := domain.DecodeReading(line)
	if err != nil {
		out.Kind, out.Err = OutcomeDecodeError, err
		return out
	}
	out.Reading = reading

	if !p.filter.Accepts(reading) {
		out.Kind = OutcomeSkipped
		return out
	}

	recordedAt, err := reading.RecordedAt(p.location)
	if err != nil {
		out.Kind, out.Err = OutcomeDecodeError, err
		return out
	}
	tempC, err := reading.Celsius()
	if err != nil {
		out.Kind, out.Err = OutcomeDecodeError, err
		return out
	}

	rec, err := p.writer.Insert(ctx, recordedAt, tempC)
	if err != nil {
		out.Kind, out.Err = classifyWriteError(err), err
		return out
	}
	rec.SensorID = reading.ID
	out.Kind, out.Record = OutcomeLogged, rec

	p.publish(ctx, rec)
	return out
}

// publish is best-effort: the row is already committed.
func (p *Pipeline) publish(ctx context.Context, rec domain.LogRecord) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, rec); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish record failed", "error", err, "sensor_id", rec.SensorID)
		return
	}
	p.metrics.RecordsPublished.Inc()
}

// report is the single sink for every outcome.
func (p *Pipeline) report(o Outcome) {
	p.metrics.LineOutcomes.WithLabelValues(string(o.Kind)).Inc()

	switch {
	case o.IsError():
		p.logger.Error("line failed",
			"outcome", o.Kind,
			"error", o.Err,
			"line", o.Line,
		)
	case o.Kind == OutcomeLogged:
		p.metrics.LastRecordedAt.Set(float64(o.Record.RecordedAt.Unix()))
		p.logger.Info("reading logged",
			"outcome", o.Kind,
			"sensor_id", o.Reading.SensorLabel(),
			"recorded_at", o.Record.RecordedAt,
			"temperature_c", o.Record.TemperatureC,
			"temperature_f", o.Record.TemperatureF,
		)
	default:
		p.logger.Info("reading skipped",
			"outcome", o.Kind,
			"model", o.Reading.Model,
			"sensor_id", o.Reading.SensorLabel(),
		)
	}
}
