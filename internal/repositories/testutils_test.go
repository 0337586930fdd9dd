package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/turnabout/internal/sqlite"
	"github.com/myrjola/turnabout/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close(ctx))
	})
	return db
}
