package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
)

// Writer enriches an accepted reading with current weather and persists it.
type Writer struct {
	store   *Store
	weather domain.WeatherProvider
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(store *Store, weather domain.WeatherProvider, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	return &Writer{store: store, weather: weather, metrics: metrics, logger: logger}
}

// Insert fetches the current weather, then writes one row. The database is
// not touched when the weather fetch fails. The returned record is the row
// that was committed.
func (w *Writer) Insert(ctx context.Context, recordedAt time.Time, poolTempC float64) (domain.LogRecord, error) {
	weather, err := w.weather.CurrentWeather(ctx)
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("%w: %w", domain.ErrEnrich, err)
	}
	rec := domain.NewLogRecord(recordedAt, poolTempC, weather)

	start := domain.Now()
	err = w.store.Insert(ctx, rec)
	w.metrics.InsertDuration.Observe(domain.Since(start).Seconds())
	if err != nil {
		return domain.LogRecord{}, err
	}

	w.logger.Debug("log row committed",
		"recorded_at", recordedAt,
		"temperature_c", rec.TemperatureC,
		"weather_main", rec.Main,
	)
	return rec, nil
}
