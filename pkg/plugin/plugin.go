// Package plugin defines the contracts between the NetSeek core and its
// modules: lifecycle, configuration, HTTP routes, the event bus, and the
// shared persistence store.
package plugin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Route represents an HTTP route exposed by a module. Routes are mounted
// by the server under /api/v1/{module}/.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Module defines the interface every NetSeek module implements.
type Module interface {
	// Name returns the module's unique identifier (e.g., "sweep", "watch").
	Name() string

	// Version returns the module's semantic version.
	Version() string

	// Init initializes the module with its configuration subsection and a
	// named logger. No network or database work should happen here.
	Init(cfg Config, logger *zap.Logger) error

	// Start begins the module's background operations. The context is
	// cancelled at shutdown.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop() error
}

// HTTPProvider is implemented by modules that expose REST API routes.
type HTTPProvider interface {
	Routes() []Route
}

// Config is the read-only configuration view handed to a module at Init.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}
