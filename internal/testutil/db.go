package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/pkg/config"
	"github.com/wonny/phasescan/pkg/database"
)

// OpenDB connects to DATABASE_URL and applies the schema. The test is skipped
// under -short or when no database is configured.
func OpenDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(context.Background()))
	return db
}
