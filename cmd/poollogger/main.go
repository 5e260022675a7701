// Command poollogger listens to an rtl_433 receiver, records the target pool
// sensor's temperature together with the current weather, and serves health,
// metrics, and recent readings over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/pool-weather-logger/internal/adapter/kafka"
	"github.com/couchcryptid/pool-weather-logger/internal/adapter/openweather"
	"github.com/couchcryptid/pool-weather-logger/internal/adapter/receiver"
	"github.com/couchcryptid/pool-weather-logger/internal/adapter/store"
	"github.com/couchcryptid/pool-weather-logger/internal/config"
	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
	"github.com/couchcryptid/pool-weather-logger/internal/pipeline"
)

const (
	schemaAttempts = 10
	schemaDelay    = 2 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(cfg.DBDriver, cfg.DSN(), logger)
	logger.Info("database configured", "driver", cfg.DBDriver, "dsn", cfg.RedactedDSN())
	prepareSchema(ctx, st, cfg.DBAutoMigrate, schemaAttempts, schemaDelay, logger)
	if ctx.Err() != nil {
		return 0
	}

	weather := openweather.NewClient(cfg.WeatherAPIKey, cfg.Latitude, cfg.Longitude,
		cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
	writer := store.NewWriter(st, weather, metrics, logger)

	var publisher pipeline.RecordPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
	} else {
		logger.Info("record publishing disabled")
	}

	stream, err := receiver.Start(ctx, cfg.ReceiverCommand, logger)
	if err != nil {
		logger.Error("failed to start receiver", "error", err)
		return 1
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Error("receiver close error", "error", err)
		}
	}()

	filter := domain.Filter{ModelPrefix: cfg.ModelPrefix, SensorID: cfg.TargetSensorID}
	p := pipeline.New(stream, filter, cfg.SensorLocation, writer, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, st, cfg.SensorLocation, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	code := 0
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline stopped", "error", err)
		code = 1
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}

type schemaBootstrapper interface {
	WaitForSchema(ctx context.Context, attempts uint, delay time.Duration) error
}

// prepareSchema creates the logs table when enabled. A failure is not fatal:
// the table may already exist for a role without CREATE privilege, and a
// missing table surfaces as a write_error on each reading instead.
func prepareSchema(ctx context.Context, st schemaBootstrapper, enabled bool, attempts uint, delay time.Duration, logger *slog.Logger) {
	if !enabled {
		logger.Info("schema bootstrap disabled")
		return
	}
	if err := st.WaitForSchema(ctx, attempts, delay); err != nil {
		logger.Warn("schema bootstrap failed, continuing", "error", err)
	}
}
