// Package sweep implements NetSeek's subnet discovery engine: it
// enumerates the candidate host range around the device's own address,
// probes each candidate for the instance status signature in bounded
// concurrent batches, and streams progress and matches over the event bus.
package sweep

import (
	"context"

	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/metrics"
	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module wires the scan engine into the module system.
type Module struct {
	logger  *zap.Logger
	bus     plugin.EventBus
	metrics *metrics.Metrics

	provider netinfo.Provider
	checker  Checker
	scanner  *Scanner
}

// New creates the Sweep module. metrics may be nil.
func New(bus plugin.EventBus, m *metrics.Metrics) *Module {
	return &Module{
		bus:     bus,
		metrics: m,
	}
}

func (m *Module) Name() string    { return "sweep" }
func (m *Module) Version() string { return "0.1.0" }

// Init builds the prober and scanner from configuration.
// Keys: probe_port, probe_timeout, batch_size.
func (m *Module) Init(cfg plugin.Config, logger *zap.Logger) error {
	m.logger = logger

	port := cfg.GetInt("probe_port")
	timeout := cfg.GetDuration("probe_timeout")
	batchSize := cfg.GetInt("batch_size")

	if m.provider == nil {
		m.provider = netinfo.NewDetector()
	}
	if m.checker == nil {
		m.checker = NewHTTPChecker(port, timeout)
	}
	m.scanner = NewScanner(m.checker, m.provider, m.bus, logger, m.metrics, batchSize)

	logger.Info("sweep module initialized",
		zap.Int("probe_port", port),
		zap.Duration("probe_timeout", timeout),
		zap.Int("batch_size", batchSize),
	)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("sweep module started")
	return nil
}

func (m *Module) Stop() error {
	m.logger.Info("sweep module stopped")
	return nil
}

// Scanner exposes the module's scanner to the CLI front end.
func (m *Module) Scanner() *Scanner {
	return m.scanner
}
