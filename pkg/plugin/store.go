package plugin

import (
	"context"
	"database/sql"
)

// Migration is a single schema change owned by a module. Migrations are
// applied in ascending Version order and tracked per module.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the shared persistence layer handed to modules that need it.
type Store interface {
	// DB returns the underlying database handle for direct queries.
	DB() *sql.DB

	// Migrate applies the module's pending migrations.
	Migrate(ctx context.Context, module string, migrations []Migration) error

	// Tx executes fn inside a transaction, committing on nil error.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Close closes the store.
	Close() error
}
