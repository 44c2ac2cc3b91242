// Package store keeps a ledger of processed events so redelivered events are
// not notified twice.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/retry"
)

// Outcome values recorded in the ledger.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// timeLayout is fixed width so processed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Record is one ledger row.
type Record struct {
	EventID     string
	RunID       string
	Status      string
	StatusCode  int
	Fields      map[string]string
	Error       string
	ProcessedAt time.Time
}

// Store is a processed-event ledger backed by sqlite or postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	retry   *retry.Config
}

// Open connects to the configured backend and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Type)
	if err != nil {
		return nil, err
	}
	table := strings.TrimSpace(cfg.TableName)
	if table == "" {
		table = DefaultTableName
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	var dsn string
	switch d.Name() {
	case "postgres":
		if dsn, err = cfg.Postgres.BuildDSN(); err != nil {
			return nil, err
		}
	default:
		path := strings.TrimSpace(cfg.SQLite.Path)
		if path == "" {
			path = DefaultDBFileName
		}
		if path == ":memory:" {
			dsn = path
		} else {
			dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, sqliteBusyTimeoutMS)
		}
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.Name(), err)
	}
	db.SetMaxOpenConns(d.MaxOpenConns())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s store: %w", d.Name(), err)
	}

	s := &Store{db: db, dialect: d, table: table, retry: retry.DefaultRetryConfig()}
	if err := s.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	common.GetLogger().WithStore(d.Name()).Debug("store ready", "table", table)
	return s, nil
}

// Ensure creates the ledger table if missing.
func (s *Store) Ensure(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	event_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	status TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	fields_json TEXT,
	error TEXT,
	processed_at TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

// Seen reports whether eventID was already sent successfully.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	q := fmt.Sprintf("SELECT status FROM %s WHERE event_id = %s", s.table, s.dialect.Placeholder(1))
	var status string
	err := s.db.QueryRowContext(ctx, q, eventID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	return status == StatusSent, nil
}

// Record inserts or replaces the ledger row for rec.EventID.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.EventID) == "" {
		return errors.New("record: event id is required")
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	var fields []byte
	if rec.Fields != nil {
		var err error
		if fields, err = json.Marshal(rec.Fields); err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
	}
	q := fmt.Sprintf(`INSERT INTO %s (event_id, run_id, status, status_code, fields_json, error, processed_at)
VALUES (%s)
ON CONFLICT (event_id) DO UPDATE SET
	run_id = excluded.run_id,
	status = excluded.status,
	status_code = excluded.status_code,
	fields_json = excluded.fields_json,
	error = excluded.error,
	processed_at = excluded.processed_at`, s.table, placeholders(s.dialect, 7))

	return retry.Do(ctx, s.retry, "store record", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, q, rec.EventID, rec.RunID, rec.Status, rec.StatusCode,
			string(fields), rec.Error, rec.ProcessedAt.UTC().Format(timeLayout))
		return err
	})
}

// List returns the most recent records first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT event_id, run_id, status, status_code, fields_json, error, processed_at
FROM %s ORDER BY processed_at DESC LIMIT %s`, s.table, s.dialect.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec             Record
			fields, errText sql.NullString
			at              string
		)
		if err := rows.Scan(&rec.EventID, &rec.RunID, &rec.Status, &rec.StatusCode, &fields, &errText, &at); err != nil {
			return nil, err
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &rec.Fields); err != nil {
				return nil, fmt.Errorf("decode fields of %s: %w", rec.EventID, err)
			}
		}
		rec.Error = errText.String
		if t, err := time.Parse(timeLayout, at); err == nil {
			rec.ProcessedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
