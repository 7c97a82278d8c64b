package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

type testDeps struct {
	db      *database.PostgresDB
	mock    sqlmock.Sqlmock
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		raw.Close()
	})

	logger := logging.NewNopLogger()
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	return testDeps{
		db:      database.Wrap(sqlx.NewDb(raw, "postgres"), nil, logger, collector),
		mock:    mock,
		logger:  logger,
		metrics: collector,
	}
}
