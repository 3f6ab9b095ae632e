package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestDB opens an in-memory database with a migrated namespace unique to the test.
func setupTestDB(t *testing.T) (*sqlite.Database, gridfetch.Namespace) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close(ctx) })

	ns := gridfetch.Namespace{Database: "gridfs", Root: getRandomString(t)}
	require.NoError(t, db.Migrate(ctx, ns), "failed to migrate")

	return db, ns
}
