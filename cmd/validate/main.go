// Command validate dry-runs a capture of receiver output through the same
// decode and acceptance logic the logger uses, without calling the weather
// API or touching the database. It reports how each line would be handled
// and checks the capture for problems worth fixing before a deployment.
//
// Usage:
//
//	rtl_433 -F json -T 600 > data/mock/capture.jsonl
//	go run ./cmd/validate -file data/mock/capture.jsonl -sensor-id 42
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
	"github.com/couchcryptid/pool-weather-logger/internal/pipeline"
)

// Plausible pool water temperatures in Celsius.
const (
	minPoolTempC = -5.0
	maxPoolTempC = 45.0
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// dryRunWriter accepts every reading without enrichment or persistence.
type dryRunWriter struct{}

func (dryRunWriter) Insert(_ context.Context, recordedAt time.Time, poolTempC float64) (domain.LogRecord, error) {
	return domain.NewLogRecord(recordedAt, poolTempC, domain.WeatherSnapshot{}), nil
}

type options struct {
	file         string
	sensorID     int64
	modelPrefix  string
	timezone     string
	maxErrorRate float64
}

func main() {
	var o options
	flag.StringVar(&o.file, "file", "", "capture of receiver output, one JSON object per line")
	flag.Int64Var(&o.sensorID, "sensor-id", 0, "target sensor id")
	flag.StringVar(&o.modelPrefix, "model-prefix", domain.DefaultModelPrefix, "accepted model prefix")
	flag.StringVar(&o.timezone, "timezone", "Local", "zone of the receiver's timestamps")
	flag.Float64Var(&o.maxErrorRate, "max-error-rate", 0.05, "tolerated fraction of undecodable lines")
	flag.Parse()

	if o.file == "" || o.sensorID == 0 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(o.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	os.Exit(run(os.Stdout, f, o))
}

func run(out io.Writer, capture io.Reader, o options) int {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		fmt.Fprintf(out, "FATAL: timezone: %v\n", err)
		return 1
	}

	filter := domain.Filter{ModelPrefix: o.modelPrefix, SensorID: o.sensorID}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(nil, filter, loc, dryRunWriter{}, nil, quiet, observability.NewMetricsForTesting())

	ctx := context.Background()
	src := pipeline.NewReaderSource(capture)
	var outcomes []pipeline.Outcome
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, domain.ErrDecode) {
			outcomes = append(outcomes, pipeline.Outcome{Kind: pipeline.OutcomeDecodeError, Err: err})
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "FATAL: read capture: %v\n", err)
			return 1
		}
		outcomes = append(outcomes, p.ProcessLine(ctx, line))
	}

	fmt.Fprintln(out, "=== Receiver Capture Validation ===")
	fmt.Fprintln(out)

	counts := make(map[pipeline.OutcomeKind]int)
	for _, o := range outcomes {
		counts[o.Kind]++
	}
	fmt.Fprintf(out, "Lines: %d\n", len(outcomes))
	for _, k := range []pipeline.OutcomeKind{pipeline.OutcomeLogged, pipeline.OutcomeSkipped, pipeline.OutcomeDecodeError} {
		fmt.Fprintf(out, "  %-14s %d\n", k, counts[k])
	}

	phases := []*phase{
		validateDecodeRate(outcomes, o.maxErrorRate),
		validateTargetSeen(outcomes, filter),
		validateAcceptedReadings(outcomes),
		validateTimeline(outcomes),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", ph.name, status)
	}

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateDecodeRate fails when too many lines are not JSON readings at all.
func validateDecodeRate(outcomes []pipeline.Outcome, maxRate float64) *phase {
	p := &phase{name: "Decode error rate"}
	if len(outcomes) == 0 {
		p.errorf("capture is empty")
		return p
	}
	var bad int
	for _, o := range outcomes {
		if o.Kind == pipeline.OutcomeDecodeError && o.Reading.Model == "" {
			bad++
		}
	}
	if rate := float64(bad) / float64(len(outcomes)); rate > maxRate {
		p.errorf("%d of %d lines undecodable (%.1f%% > %.1f%%)", bad, len(outcomes), rate*100, maxRate*100)
	}
	return p
}

// validateTargetSeen fails when the target sensor never appears, and points
// at near misses that usually mean a wrong id or prefix.
func validateTargetSeen(outcomes []pipeline.Outcome, filter domain.Filter) *phase {
	p := &phase{name: "Target sensor present"}
	for _, o := range outcomes {
		if o.Kind == pipeline.OutcomeLogged {
			return p
		}
	}
	p.errorf("no reading matched model prefix %q and id %d", filter.ModelPrefix, filter.SensorID)

	seen := make(map[string]bool)
	for _, o := range outcomes {
		if o.Kind != pipeline.OutcomeSkipped {
			continue
		}
		key := o.Reading.Model + " id=" + o.Reading.SensorLabel()
		if seen[key] {
			continue
		}
		seen[key] = true
		p.errorf("heard %s", key)
	}
	return p
}

// validateAcceptedReadings checks that target readings carry a usable
// timestamp and a plausible temperature.
func validateAcceptedReadings(outcomes []pipeline.Outcome) *phase {
	p := &phase{name: "Accepted readings complete"}
	for i, o := range outcomes {
		switch {
		case o.Kind == pipeline.OutcomeDecodeError && o.Reading.Model != "":
			p.errorf("line %d: %v", i+1, o.Err)
		case o.Kind == pipeline.OutcomeLogged:
			if c := o.Record.TemperatureC; c < minPoolTempC || c > maxPoolTempC {
				p.errorf("line %d: implausible pool temperature %.1f C", i+1, c)
			}
		}
	}
	return p
}

// validateTimeline checks that target readings do not go back in time.
func validateTimeline(outcomes []pipeline.Outcome) *phase {
	p := &phase{name: "Accepted readings in time order"}
	var last time.Time
	for i, o := range outcomes {
		if o.Kind != pipeline.OutcomeLogged {
			continue
		}
		at := o.Record.RecordedAt
		if !last.IsZero() && at.Before(last) {
			p.errorf("line %d: %s is before previous reading %s", i+1,
				at.Format(domain.ReadingTimeLayout), last.Format(domain.ReadingTimeLayout))
		}
		last = at
	}
	return p
}
