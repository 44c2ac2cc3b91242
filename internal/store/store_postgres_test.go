package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// waitForPostgresDSN pings the DSN until it responds or timeout elapses.
func waitForPostgresDSN(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			lastErr = db.Ping()
			_ = db.Close()
			if lastErr == nil {
				return nil
			}
		} else {
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for postgres")
	}
	return lastErr
}

func TestPostgresStore_Ledger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "mailrelay_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		),
	}
	pg, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("skipping Postgres container test: %v", err)
		return
	}
	defer func() { _ = pg.Terminate(ctx) }()

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := PostgresConfig{Host: host, Port: port.Int(), User: "test", Password: "test", DBName: "mailrelay_test"}
	dsn, err := cfg.BuildDSN()
	require.NoError(t, err)
	require.NoError(t, waitForPostgresDSN(dsn, 30*time.Second))

	s, err := Open(ctx, Config{Type: "postgres", Postgres: cfg})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Record(ctx, Record{EventID: "evt-1", RunID: "r1", Status: StatusFailed, StatusCode: 500}))
	seen, err := s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Record(ctx, Record{EventID: "evt-1", RunID: "r2", Status: StatusSent, StatusCode: 202, Fields: map[string]string{"a": "b"}}))
	seen, err = s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	recs, err := s.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r2", recs[0].RunID)
	assert.Equal(t, "b", recs[0].Fields["a"])
}
