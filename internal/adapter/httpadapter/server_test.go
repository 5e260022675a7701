package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/adapter/httpadapter"
	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type recentCall struct {
	since time.Time
	limit int
}

type mockRecords struct {
	recs  []domain.LogRecord
	err   error
	calls []recentCall
}

func (m *mockRecords) Recent(_ context.Context, since time.Time, limit int) ([]domain.LogRecord, error) {
	m.calls = append(m.calls, recentCall{since: since, limit: limit})
	return m.recs, m.err
}

func newTestServer(readyErr error, records *mockRecords) *httpadapter.Server {
	if records == nil {
		records = &mockRecords{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, records, time.UTC, logger)
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(errors.New("no receiver output yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReadings_Defaults(t *testing.T) {
	records := &mockRecords{recs: []domain.LogRecord{
		domain.NewLogRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), 26.0, domain.WeatherSnapshot{Main: "Clear"}),
	}}
	rec := get(t, newTestServer(nil, records), "/api/readings")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, records.calls, 1)
	assert.True(t, records.calls[0].since.IsZero())
	assert.Equal(t, 0, records.calls[0].limit)

	var body struct {
		Count    int              `json:"count"`
		Readings []map[string]any `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Readings, 1)
	assert.InDelta(t, 78.8, body.Readings[0]["temperature_f"], 1e-9)
	assert.Equal(t, "Clear", body.Readings[0]["weather_main"])
	assert.NotContains(t, body.Readings[0], "sensor_id")
}

func TestReadings_SinceAndLimit(t *testing.T) {
	records := &mockRecords{}
	rec := get(t, newTestServer(nil, records), "/api/readings?since=2024-01-01T00:00:00Z&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, records.calls, 1)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(records.calls[0].since))
	assert.Equal(t, 5, records.calls[0].limit)
	assert.JSONEq(t, `{"readings":[],"count":0}`, rec.Body.String())
}

func TestReadings_BadParams(t *testing.T) {
	for _, target := range []string{
		"/api/readings?since=yesterday",
		"/api/readings?limit=abc",
		"/api/readings?limit=0",
		"/api/readings?limit=-3",
	} {
		t.Run(target, func(t *testing.T) {
			records := &mockRecords{}
			rec := get(t, newTestServer(nil, records), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, records.calls)
		})
	}
}

func TestReadings_QueryFailure(t *testing.T) {
	records := &mockRecords{err: domain.ErrDatabase}
	rec := get(t, newTestServer(nil, records), "/api/readings")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadings_SinceConvertedToSensorZone(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	records := &mockRecords{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httpadapter.NewServer(":0", &mockReadiness{}, records, est, logger)

	rec := get(t, srv, "/api/readings?since=2024-01-01T17:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, records.calls, 1)

	since := records.calls[0].since
	assert.Equal(t, est, since.Location())
	assert.Equal(t, 12, since.Hour(), "wall clock must match what the receiver records")
	assert.True(t, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC).Equal(since))
}
