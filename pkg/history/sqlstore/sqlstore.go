// Package sqlstore implements history.Driver over database/sql. The sqlite
// and postgres drivers supply the dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

// Dialect holds the statements that differ between databases.
type Dialect struct {
	// Schema creates the interactions table and its index if missing.
	Schema []string

	// Upsert takes id, task, model, input, output, error, error_kind,
	// streaming, started_at, duration_ns in that order.
	Upsert string

	// Get takes the id.
	Get string

	// List takes the limit.
	List string

	// ListAll takes no arguments.
	ListAll string
}

// Store is a history.Driver backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New applies the dialect schema and returns a Store that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying handle, mostly for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put upserts the interaction.
func (s *Store) Put(ctx context.Context, interaction *history.Interaction) error {
	if interaction == nil {
		return history.ErrNilInteraction
	}

	_, err := s.db.ExecContext(ctx, s.dialect.Upsert,
		interaction.ID,
		interaction.Task,
		interaction.Model,
		interaction.Input,
		interaction.Output,
		interaction.Error,
		interaction.ErrorKind,
		interaction.Streaming,
		interaction.StartedAt.UTC(),
		int64(interaction.Duration),
	)
	if err != nil {
		return fmt.Errorf("storing interaction %s: %w", interaction.ID, err)
	}

	return nil
}

// Get retrieves an interaction by ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Interaction, error) {
	interaction, err := scanInteraction(s.db.QueryRowContext(ctx, s.dialect.Get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading interaction %s: %w", id, err)
	}

	return interaction, nil
}

// List returns up to limit interactions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*history.Interaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, s.dialect.List, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.dialect.ListAll)
	}
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var result []*history.Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		result = append(result, interaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}

	return result, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row scanner) (*history.Interaction, error) {
	var (
		interaction history.Interaction
		durationNs  int64
		startedAt   time.Time
	)

	err := row.Scan(
		&interaction.ID,
		&interaction.Task,
		&interaction.Model,
		&interaction.Input,
		&interaction.Output,
		&interaction.Error,
		&interaction.ErrorKind,
		&interaction.Streaming,
		&startedAt,
		&durationNs,
	)
	if err != nil {
		return nil, err
	}

	interaction.StartedAt = startedAt.UTC()
	interaction.Duration = time.Duration(durationNs)

	return &interaction, nil
}
