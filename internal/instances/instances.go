package instances

import (
	"context"

	"go.uber.org/zap"

	"github.com/netseek/netseek/pkg/plugin"
)

// Event topics published by the instances module.
const (
	TopicConnected = "instances.connected"
	TopicForgotten = "instances.forgotten"
)

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module persists the last-connected instance and serves it over HTTP.
type Module struct {
	logger *zap.Logger
	store  plugin.Store
	bus    plugin.EventBus

	repo Repository
}

// New creates the Instances module.
func New(store plugin.Store, bus plugin.EventBus) *Module {
	return &Module{
		store: store,
		bus:   bus,
	}
}

func (m *Module) Name() string    { return "instances" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(_ plugin.Config, logger *zap.Logger) error {
	m.logger = logger
	return nil
}

// Start runs the instances migrations and opens the repository.
func (m *Module) Start(ctx context.Context) error {
	if m.repo == nil {
		repo, err := NewSQLiteRepository(ctx, m.store)
		if err != nil {
			return err
		}
		m.repo = repo
	}
	m.logger.Info("instances module started")
	return nil
}

func (m *Module) Stop() error {
	m.logger.Info("instances module stopped")
	return nil
}

// Repository exposes the saved-instance store to other modules.
func (m *Module) Repository() Repository {
	return m.repo
}
