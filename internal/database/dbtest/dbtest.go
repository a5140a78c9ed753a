// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"restaurant-orders/internal/database"
)

// NewPostgres runs a migrated Postgres container for the lifetime of t and
// returns a connected pool. It skips the test under -short.
func NewPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("restaurant"),
		postgres.WithUsername("restaurant"),
		postgres.WithPassword("restaurant"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.PanicLevel)

	migrateURL := "pgx5" + strings.TrimPrefix(dsn, "postgres")
	require.NoError(t, database.Migrate(migrateURL, log))

	svc, err := database.New(ctx, dsn, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc.DB()
}

// SeedMenuItem inserts a menu item and returns its id.
func SeedMenuItem(t *testing.T, db *sqlx.DB, name, price, status string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO menu_items (name, price, status) VALUES ($1, $2, $3) RETURNING id`,
		name, price, status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
