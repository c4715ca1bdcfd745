package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// engineTables lists every table the engine migrates, children first.
var engineTables = []string{"secrets", "requests", "folders", "collections", "environments"}

// TestDB is a migrated engine database running in a disposable container.
type TestDB struct {
	DB        *database.DB
	Container testcontainers.Container
}

// StartTestDB starts PostgreSQL, connects through database.New and applies
// the engine migrations. Callers own the result and must Terminate it.
func StartTestDB(ctx context.Context) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "nikode_engine_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}
	tdb := &TestDB{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		tdb.Terminate(ctx)
		return nil, fmt.Errorf("resolve container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		tdb.Terminate(ctx)
		return nil, fmt.Errorf("resolve container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/nikode_engine_test?sslmode=disable", host, port.Port())
	tdb.DB, err = database.New(ctx, dsn)
	if err != nil {
		tdb.Terminate(ctx)
		return nil, err
	}
	if err := tdb.DB.Migrate(ctx); err != nil {
		tdb.Terminate(ctx)
		return nil, err
	}
	return tdb, nil
}

// Reset empties every engine table so each test starts from a clean store.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()
	_, err := tdb.DB.Pool.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(engineTables, ", ")+" CASCADE")
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// Terminate closes the pool and removes the container.
func (tdb *TestDB) Terminate(ctx context.Context) {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
	if tdb.Container != nil {
		_ = tdb.Container.Terminate(ctx)
	}
}
