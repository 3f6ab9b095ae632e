package mongodb_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/mongodb"
)

var (
	testURI     string
	testURIOnce sync.Once
	testCleanup func()
)

func TestMain(m *testing.M) {
	code := m.Run()
	if testCleanup != nil {
		testCleanup()
	}
	os.Exit(code)
}

// getSharedTestURI starts one mongo container for the package and returns its URI.
func getSharedTestURI(t *testing.T) string {
	t.Helper()

	testURIOnce.Do(func() {
		ctx := context.Background()

		container, err := mongocontainer.Run(ctx, "mongo:7")
		if err != nil {
			t.Fatalf("failed to start mongodb container: %v", err)
		}

		testCleanup = func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				fmt.Fprintf(os.Stderr, "failed to terminate container: %s\n", err)
			}
		}

		uri, err := container.ConnectionString(ctx)
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}
		testURI = uri
	})

	if testURI == "" {
		t.Fatal("shared mongodb container is not available")
	}
	return testURI
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestDB connects and migrates a bucket unique to the test.
func setupTestDB(t *testing.T) (*mongodb.Database, gridfetch.Namespace) {
	t.Helper()
	ctx := context.Background()

	db, err := mongodb.Connect(ctx, getSharedTestURI(t), 10*time.Second)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close(ctx) })

	ns := gridfetch.Namespace{Database: "gridfs", Root: getRandomString(t)}
	require.NoError(t, db.Migrate(ctx, ns), "failed to migrate")

	return db, ns
}
