// Package instances persists which NetSeek instance this installation last
// connected to, so the UI and the watch module can find it again without
// rescanning the subnet.
package instances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/netseek/netseek/pkg/plugin"
)

// ErrNotFound is returned when no instance has been saved yet.
var ErrNotFound = errors.New("no instance saved")

// Instance records a connection to a discovered NetSeek instance.
type Instance struct {
	URL         string    `json:"url"`
	Label       string    `json:"label,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Repository provides access to the saved instance record.
type Repository interface {
	// Current returns the last-connected instance.
	Current(ctx context.Context) (*Instance, error)

	// Save replaces the saved instance with inst.
	Save(ctx context.Context, inst Instance) error

	// Forget removes the saved instance.
	Forget(ctx context.Context) error
}

// Compile-time interface guard.
var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository using SQLite. The table holds at
// most one row; Save overwrites it.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a Repository and runs the instances migrations.
func NewSQLiteRepository(ctx context.Context, store plugin.Store) (*SQLiteRepository, error) {
	if err := store.Migrate(ctx, "instances", migrations); err != nil {
		return nil, fmt.Errorf("instances migrations: %w", err)
	}
	return &SQLiteRepository{db: store.DB()}, nil
}

func (r *SQLiteRepository) Current(ctx context.Context) (*Instance, error) {
	var inst Instance
	err := r.db.QueryRowContext(ctx,
		`SELECT url, label, connected_at FROM instances_current WHERE id = 1`,
	).Scan(&inst.URL, &inst.Label, &inst.ConnectedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get current instance: %w", err)
	}
	return &inst, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, inst Instance) error {
	connectedAt := inst.ConnectedAt
	if connectedAt.IsZero() {
		connectedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instances_current (id, url, label, connected_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			label = excluded.label,
			connected_at = excluded.connected_at`,
		inst.URL, inst.Label, connectedAt,
	)
	if err != nil {
		return fmt.Errorf("save instance %q: %w", inst.URL, err)
	}
	return nil
}

func (r *SQLiteRepository) Forget(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM instances_current WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("forget instance: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// migrations defines the database schema for the instances module.
var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create instances_current table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE instances_current (
					id           INTEGER PRIMARY KEY CHECK (id = 1),
					url          TEXT NOT NULL,
					label        TEXT NOT NULL DEFAULT '',
					connected_at DATETIME NOT NULL
				)`)
			return err
		},
	},
}
