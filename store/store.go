// Package store is the durable event store: two keyed tables (raw
// events and cleaned records), each row an id plus a JSON blob, backed
// by an embedded DuckDB database.
//
// The store is the single source of truth. All mutation goes through
// the upsert/append entry points, which use DuckDB's native
// ON CONFLICT DO NOTHING so first-write-wins holds regardless of
// arrival order, and reruns over overlapping date ranges never create
// duplicate rows or alter previously stored payloads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/prsense/ghingest/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
  id VARCHAR PRIMARY KEY,
  event_data JSON NOT NULL
);
CREATE TABLE IF NOT EXISTS cleaned (
  id VARCHAR PRIMARY KEY,
  event_data JSON NOT NULL
);
`

// DB is a handle on the event store database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if necessary) the event store at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// UpsertResult reports the dedup outcome of one batch.
type UpsertResult struct {
	Inserted       int
	AlreadyPresent int
}

// UpsertRaw inserts each event whose id is absent and leaves existing
// rows unchanged (first write wins). The result reports how many were
// newly inserted vs already present.
func (d *DB) UpsertRaw(ctx context.Context, events []*types.RawEvent) (UpsertResult, error) {
	var res UpsertResult
	if len(events) == 0 {
		return res, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (id, event_data) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	// a batch may itself carry duplicate ids; rows written earlier in the
	// same transaction count as already present too
	for _, event := range events {
		result, err := stmt.ExecContext(ctx, event.Id, string(event.Payload))
		if err != nil {
			return res, fmt.Errorf("failed to upsert event %s: %w", event.Id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return res, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n > 0 {
			res.Inserted++
		} else {
			res.AlreadyPresent++
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return res, nil
}

// AppendCleaned appends cleaned records with the same upsert-by-id
// semantics as UpsertRaw, returning how many were newly inserted.
func (d *DB) AppendCleaned(ctx context.Context, records []*types.CleanedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cleaned (id, event_data) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare append: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, record := range records {
		blob, err := json.Marshal(record)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal cleaned record %s: %w", record.Id, err)
		}
		result, err := stmt.ExecContext(ctx, record.Id, string(blob))
		if err != nil {
			return 0, fmt.Errorf("failed to append cleaned record %s: %w", record.Id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}
	return inserted, nil
}

// StreamRaw reads back all raw rows as a cursor, without loading the
// table into memory. No ordering is guaranteed.
func (d *DB) StreamRaw(ctx context.Context) (*RawCursor, error) {
	// cast to VARCHAR: the driver surfaces bare JSON columns to Scan as
	// map[string]interface{}, not text
	rows, err := d.db.QueryContext(ctx, `SELECT event_data::VARCHAR FROM events`)
	if err != nil {
		return nil, fmt.Errorf("failed to stream raw events: %w", err)
	}
	return &RawCursor{rows: rows}, nil
}

// CleanedIds returns the set of ids already present in the cleaned
// table. Used by the preprocessing pipeline's dedup stage so reruns are
// checked against durable state, not this process's memory.
func (d *DB) CleanedIds(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM cleaned`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cleaned ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cleaned id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// RawCursor is a forward-only cursor over the raw events table.
type RawCursor struct {
	rows *sql.Rows
	cur  *types.RawEvent
	err  error
}

func (c *RawCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.rows.Next() {
		var blob string
		if err := c.rows.Scan(&blob); err != nil {
			c.err = fmt.Errorf("failed to scan raw event: %w", err)
			return false
		}
		event, err := types.ParseRawEvent([]byte(blob))
		if err != nil {
			// stored rows were parsed once on ingest; an unreadable row
			// here means the blob was corrupted, which is fatal
			c.err = fmt.Errorf("corrupt raw event row: %w", err)
			return false
		}
		c.cur = event
		return true
	}
	c.err = c.rows.Err()
	return false
}

func (c *RawCursor) Event() *types.RawEvent {
	return c.cur
}

func (c *RawCursor) Err() error {
	return c.err
}

func (c *RawCursor) Close() error {
	return c.rows.Close()
}
