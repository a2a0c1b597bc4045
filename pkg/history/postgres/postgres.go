// Package postgres provides a PostgreSQL-backed history driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

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
			streaming   BOOLEAN NOT NULL DEFAULT FALSE,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ns BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS interactions_started_at ON interactions (started_at DESC)`,
	},
	Upsert: `INSERT INTO interactions (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			task = EXCLUDED.task,
			model = EXCLUDED.model,
			input = EXCLUDED.input,
			output = EXCLUDED.output,
			error = EXCLUDED.error,
			error_kind = EXCLUDED.error_kind,
			streaming = EXCLUDED.streaming,
			started_at = EXCLUDED.started_at,
			duration_ns = EXCLUDED.duration_ns`,
	Get:     `SELECT ` + columns + ` FROM interactions WHERE id = $1`,
	List:    `SELECT ` + columns + ` FROM interactions ORDER BY started_at DESC, id LIMIT $1`,
	ListAll: `SELECT ` + columns + ` FROM interactions ORDER BY started_at DESC, id`,
}

// Driver implements history.Driver using PostgreSQL.
type Driver struct {
	*sqlstore.Store
}

// NewDriver connects to PostgreSQL and creates the schema when needed.
// connStr is a standard PostgreSQL connection string, e.g.
// "host=localhost port=5432 user=xiaokai password=xiaokai dbname=xiaokai sslmode=disable"
func NewDriver(ctx context.Context, connStr string) (*Driver, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := sqlstore.New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
