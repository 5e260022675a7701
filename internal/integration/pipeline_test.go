//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/adapter/kafka"
	"github.com/couchcryptid/pool-weather-logger/internal/adapter/openweather"
	"github.com/couchcryptid/pool-weather-logger/internal/adapter/store"
	"github.com/couchcryptid/pool-weather-logger/internal/config"
	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
	"github.com/couchcryptid/pool-weather-logger/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "pool-readings-test"

var lines = []string{
	`{"model":"Inkbird-IBS-TH2","id":42,"time":"2024-01-01 12:00:00","temperature_C":26.0}`,
	`{"model":"Inkbird-IBS-TH2","id":99,"time":"2024-01-01 12:00:30","temperature_C":19.5}`,
	`not-json-at-all`,
	`{"model":"Inkbird-IBS-TH2","id":42,"time":"2024-01-01 12:01:00","temperature_C":26.5}`,
}

// TestPostgresStore verifies schema bootstrap, insert, and the dashboard
// read query against a real PostgreSQL.
func TestPostgresStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	st := store.New(store.DriverPostgres, dsn, discardLogger())
	require.NoError(t, st.WaitForSchema(ctx, 5, time.Second))
	require.NoError(t, st.EnsureSchema(ctx), "schema bootstrap is idempotent")

	metrics := observability.NewMetricsForTesting()
	weather := openweather.NewClient("test-key", 30.27, -97.74, weatherServer(t).URL, 5*time.Second, metrics, discardLogger())
	writer := store.NewWriter(st, weather, metrics, discardLogger())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		_, err := writer.Insert(ctx, base.Add(time.Duration(i)*time.Minute), 26+float64(i))
		require.NoError(t, err)
	}

	recs, err := st.Recent(ctx, base.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, base.Add(2*time.Minute).Equal(recs[0].RecordedAt))
	assert.InDelta(t, 28.0, recs[0].TemperatureC, 1e-9)
	assert.InDelta(t, 82.4, recs[0].TemperatureF, 1e-9)
	assert.Equal(t, "clear sky", recs[0].Description)
	assert.Equal(t, 1012, recs[0].PressureHPa)
}

// TestPipelineEndToEnd runs receiver lines through the pipeline into
// PostgreSQL and Kafka.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	broker := startKafka(ctx, t)

	st := store.New(store.DriverPostgres, dsn, discardLogger())
	require.NoError(t, st.WaitForSchema(ctx, 5, time.Second))

	metrics := observability.NewMetricsForTesting()
	weather := openweather.NewClient("test-key", 30.27, -97.74, weatherServer(t).URL, 5*time.Second, metrics, discardLogger())
	writer := store.NewWriter(st, weather, metrics, discardLogger())

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	src := &sliceSource{lines: lines}
	p := pipeline.New(src, domain.Filter{ModelPrefix: "Inkbird", SensorID: 42}, time.UTC, writer, publisher, discardLogger(), metrics)
	require.ErrorIs(t, p.Run(ctx), pipeline.ErrStreamEnded)

	recs, err := st.Recent(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.InDelta(t, 26.5, recs[0].TemperatureC, 1e-9)
	assert.InDelta(t, 26.0, recs[1].TemperatureC, 1e-9)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = reader.Close() })

	for _, wantTemp := range []float64{26.0, 26.5} {
		readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		cancelRead()
		require.NoError(t, err, "read published record")

		assert.Equal(t, "42", string(msg.Key))
		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "42", headers["sensor_id"])
		assert.NotEmpty(t, headers["recorded_at"])

		var rec domain.LogRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, int64(42), rec.SensorID)
		assert.InDelta(t, wantTemp, rec.TemperatureC, 1e-9)
		assert.Equal(t, "Clear", rec.Main)
	}
}

type sliceSource struct {
	lines []string
	next  int
}

func (s *sliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	l := s.lines[s.next]
	s.next++
	return l, nil
}
