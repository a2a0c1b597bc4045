// Package sqlite provides a SQLite-backed history driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Josn-deng/lux-xiaokai/pkg/history/sqlstore"
)

const columns = "id, task, model, input, output, error, error_kind, streaming, started_at, duration_ns"

var dialect = sqlstore.Dialect{
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id          TEXT PRIMARY KEY,
			task        TEXT NOT NULL,
			model       TEXT NOT NULL,
			input       TEXT NOT NULL,
			output      TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			error_kind  TEXT NOT NULL DEFAULT '',
			streaming   BOOLEAN NOT NULL DEFAULT 0,
			started_at  TIMESTAMP NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS interactions_started_at ON interactions (started_at DESC)`,
	},
	Upsert: `INSERT OR REPLACE INTO interactions (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	Get:     `SELECT ` + columns + ` FROM interactions WHERE id = ?`,
	List:    `SELECT ` + columns + ` FROM interactions ORDER BY started_at DESC, id LIMIT ?`,
	ListAll: `SELECT ` + columns + ` FROM interactions ORDER BY started_at DESC, id`,
}

// Driver implements history.Driver using SQLite.
type Driver struct {
	*sqlstore.Store
}

// NewDriver opens the SQLite database at dbPath, creating the schema when
// needed. dbPath may be ":memory:".
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would be a separate database,
	// and a single writer avoids SQLITE_BUSY from the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	store, err := sqlstore.New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
