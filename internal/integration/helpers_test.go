//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const weatherBody = `{"main":{"temp":21.0,"feels_like":20.0,"humidity":55,"pressure":1012},"weather":[{"main":"Clear","description":"clear sky"}],"clouds":{"all":5},"wind":{"speed":3.2,"deg":180}}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres runs a throwaway PostgreSQL and returns its connection URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pool"),
		tcpostgres.WithUsername("pool"),
		tcpostgres.WithPassword("pool-secret"),
		tcpostgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() { require.NoError(t, tc.TerminateContainer(ctr)) })
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("pool-logger-test"),
	)
	t.Cleanup(func() { require.NoError(t, tc.TerminateContainer(ctr)) })
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// weatherServer fakes the current-weather endpoint with a fixed clear sky.
func weatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weatherBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}
