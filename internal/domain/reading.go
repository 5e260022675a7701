package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReadingTimeLayout is the layout of the receiver's "time" field.
const ReadingTimeLayout = "2006-01-02 15:04:05"

// DefaultModelPrefix is the sensor family accepted when none is configured.
const DefaultModelPrefix = "Inkbird"

// rawReading is the subset of an rtl_433 JSON object the service reads.
// id and temperature_C are kept raw so that a missing or oddly typed value
// on an unrelated device does not fail the whole line.
type rawReading struct {
	Model        string          `json:"model"`
	ID           json.RawMessage `json:"id"`
	Time         string          `json:"time"`
	TemperatureC json.RawMessage `json:"temperature_C"`
}

// Reading is one decoded telemetry sample from the receiver.
type Reading struct {
	Model string
	ID    int64
	HasID bool
	Time  string

	TemperatureC   float64
	HasTemperature bool
}

// DecodeReading parses one receiver line. Surrounding whitespace is ignored.
// Any line that is not a JSON object, or whose model is not a string, fails
// with ErrDecode.
func DecodeReading(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("%w: empty line", ErrDecode)
	}
	if line[0] != '{' {
		return Reading{}, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}

	var raw rawReading
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	r := Reading{Model: raw.Model, Time: raw.Time}
	r.ID, r.HasID = parseIntField(raw.ID)
	r.TemperatureC, r.HasTemperature = parseFloatField(raw.TemperatureC)
	return r, nil
}

// RecordedAt parses the reading's timestamp in loc. A nil loc means UTC.
func (r Reading) RecordedAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(ReadingTimeLayout, r.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q: %w", ErrDecode, r.Time, err)
	}
	return t, nil
}

// Celsius returns the reading's temperature or ErrDecode when the field was
// absent or not a number.
func (r Reading) Celsius() (float64, error) {
	if !r.HasTemperature {
		return 0, fmt.Errorf("%w: temperature_C missing", ErrDecode)
	}
	return r.TemperatureC, nil
}

// SensorLabel renders the id for log output, "none" when it was absent.
func (r Reading) SensorLabel() string {
	if !r.HasID {
		return "none"
	}
	return strconv.FormatInt(r.ID, 10)
}

// Filter is the acceptance check deciding which readings are persisted.
type Filter struct {
	ModelPrefix string
	SensorID    int64
}

// Accepts reports whether r comes from the target sensor: its model starts
// with the configured prefix and its id equals the configured id.
func (f Filter) Accepts(r Reading) bool {
	return r.HasID && r.ID == f.SensorID && strings.HasPrefix(r.Model, f.ModelPrefix)
}

func parseIntField(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return v, true
	}
	// 42.0 still identifies sensor 42.
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseFloatField(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
