// Package registry manages the lifecycle of all registered NetSeek modules.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/netseek/netseek/pkg/plugin"
)

// Registry holds registered modules and drives their lifecycle.
type Registry struct {
	mu       sync.RWMutex
	modules  map[string]plugin.Module
	order    []string
	disabled map[string]bool
	logger   *zap.Logger
}

// New creates an empty module registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		modules:  make(map[string]plugin.Module),
		disabled: make(map[string]bool),
		logger:   logger,
	}
}

// Register adds a module. Names must be unique.
func (r *Registry) Register(m plugin.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered",
		zap.String("name", name),
		zap.String("version", m.Version()),
	)
	return nil
}

// InitAll initializes modules in registration order. Each module receives
// its own configuration subsection (modules.<name>) and a named logger.
// Modules disabled in configuration are skipped.
func (r *Registry) InitAll(cfg plugin.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		m := r.modules[name]

		key := "modules." + name
		if cfg.IsSet(key+".enabled") && !cfg.GetBool(key+".enabled") {
			r.logger.Info("module disabled, skipping", zap.String("name", name))
			r.disabled[name] = true
			continue
		}

		r.logger.Info("initializing module", zap.String("name", name))
		if err := m.Init(cfg.Sub(key), r.logger.Named(name)); err != nil {
			return fmt.Errorf("init module %q: %w", name, err)
		}
	}
	return nil
}

// StartAll starts modules in registration order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		r.logger.Info("starting module", zap.String("name", name))
		if err := r.modules[name].Start(ctx); err != nil {
			return fmt.Errorf("start module %q: %w", name, err)
		}
	}
	return nil
}

// StopAll stops modules in reverse registration order. Stop errors are
// logged, not propagated, so every module gets a shutdown chance.
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if r.disabled[name] {
			continue
		}
		r.logger.Info("stopping module", zap.String("name", name))
		if err := r.modules[name].Stop(); err != nil {
			r.logger.Error("module stop failed", zap.String("name", name), zap.Error(err))
		}
	}
}

// Get returns a module by name.
func (r *Registry) Get(name string) (plugin.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// All returns all modules in registration order.
func (r *Registry) All() []plugin.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plugin.Module, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// AllRoutes returns the HTTP routes of every module that provides them,
// keyed by module name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		if hp, ok := r.modules[name].(plugin.HTTPProvider); ok {
			if hr := hp.Routes(); len(hr) > 0 {
				routes[name] = hr
			}
		}
	}
	return routes
}
