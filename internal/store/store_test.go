package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Type: "sqlite", SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db")}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RecordSeenList(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	seen, err := s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Record{
		EventID: "evt-1", RunID: "run-a", Status: StatusFailed, StatusCode: 503,
		Error: "unexpected status", ProcessedAt: base,
	}))
	seen, err = s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "failed events are retried")

	require.NoError(t, s.Record(ctx, Record{
		EventID: "evt-1", RunID: "run-b", Status: StatusSent, StatusCode: 202,
		Fields: map[string]string{"Priority": "1"}, ProcessedAt: base.Add(time.Minute),
	}))
	seen, err = s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.Record(ctx, Record{EventID: "evt-2", RunID: "run-c", Status: StatusSkipped, ProcessedAt: base.Add(2 * time.Minute)}))

	recs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "evt-2", recs[0].EventID)
	assert.Equal(t, StatusSkipped, recs[0].Status)
	assert.Nil(t, recs[0].Fields)
	assert.Equal(t, "evt-1", recs[1].EventID)
	assert.Equal(t, "run-b", recs[1].RunID)
	assert.Equal(t, 202, recs[1].StatusCode)
	assert.Equal(t, map[string]string{"Priority": "1"}, recs[1].Fields)
	assert.Empty(t, recs[1].Error)
	assert.True(t, recs[1].ProcessedAt.Equal(base.Add(time.Minute)))

	recs, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(ctx, Config{SQLite: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Record{EventID: "evt-1", RunID: "r", Status: StatusSent}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{SQLite: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	seen, err := s.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSQLiteStore_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{SQLite: SQLiteConfig{Path: ":memory:"}, TableName: "custom_events"})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Record(ctx, Record{EventID: "x", RunID: "r", Status: StatusSent}))
	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].ProcessedAt.IsZero())
}

func TestRecord_RequiresEventID(t *testing.T) {
	s := openSQLite(t)
	assert.Error(t, s.Record(context.Background(), Record{Status: StatusSent}))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{Type: "mysql"})
	assert.ErrorContains(t, err, "unsupported store type")

	_, err = Open(ctx, Config{TableName: "events; DROP TABLE x"})
	assert.ErrorContains(t, err, "invalid table name")

	_, err = Open(ctx, Config{Type: "postgres"})
	assert.ErrorContains(t, err, "dsn or host is required")
}

func TestPostgresConfig_BuildDSN(t *testing.T) {
	dsn, err := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "relay"}.BuildDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/relay?sslmode=disable", dsn)

	dsn, err = PostgresConfig{DSN: " postgres://x ", Host: "ignored"}.BuildDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)

	dsn, err = PostgresConfig{Host: "db", Port: 6543, SSLMode: "require"}.BuildDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://:@db:6543/?sslmode=require", dsn)
}

func TestDialects(t *testing.T) {
	d, err := dialectFor("")
	require.NoError(t, err)
	assert.Equal(t, "?, ?, ?", placeholders(d, 3))

	d, err = dialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.DriverName())
	assert.Equal(t, "$1, $2, $3", placeholders(d, 3))
}
