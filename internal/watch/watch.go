package watch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/instances"
	"github.com/netseek/netseek/internal/sweep"
	"github.com/netseek/netseek/pkg/plugin"
)

// Event topics published by the watch module.
const (
	TopicUp   = "watch.up"
	TopicDown = "watch.down"
)

// Health states reported for the saved instance.
const (
	StateUnknown  = "unknown"  // nothing saved, or no check has run yet
	StateUp       = "up"       // host answers and the status endpoint matches
	StateDegraded = "degraded" // host answers but the status endpoint does not match
	StateDown     = "down"     // host does not answer
)

const (
	defaultInterval  = 30 * time.Second
	defaultPingCount = 3
)

// Source yields the instance to watch. Satisfied by instances.Repository.
type Source interface {
	Current(ctx context.Context) (*instances.Instance, error)
}

// Status is the latest health observation of the saved instance.
type Status struct {
	State     string      `json:"state"`
	URL       string      `json:"url,omitempty"`
	Ping      *PingResult `json:"ping,omitempty"`
	Matched   bool        `json:"matched"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module periodically health-checks the saved instance.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	source func() Source

	pinger   Pinger
	checker  sweep.Checker
	interval time.Duration

	mu     sync.Mutex
	status Status

	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates the Watch module. source is evaluated at Start so it may
// return a repository that another module opens during its own Start.
func New(bus plugin.EventBus, source func() Source) *Module {
	return &Module{
		bus:    bus,
		source: source,
		status: Status{State: StateUnknown},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (m *Module) Name() string    { return "watch" }
func (m *Module) Version() string { return "0.1.0" }

// Init builds the pinger and status prober from configuration.
// Keys: interval, ping_timeout, ping_count, probe_port, probe_timeout.
func (m *Module) Init(cfg plugin.Config, logger *zap.Logger) error {
	m.logger = logger

	m.interval = cfg.GetDuration("interval")
	if m.interval <= 0 {
		m.interval = defaultInterval
	}

	if m.pinger == nil {
		pingTimeout := cfg.GetDuration("ping_timeout")
		if pingTimeout <= 0 {
			pingTimeout = sweep.DefaultProbeTimeout
		}
		pingCount := cfg.GetInt("ping_count")
		if pingCount <= 0 {
			pingCount = defaultPingCount
		}
		m.pinger = NewICMPPinger(pingTimeout, pingCount)
	}
	if m.checker == nil {
		m.checker = sweep.NewHTTPChecker(cfg.GetInt("probe_port"), cfg.GetDuration("probe_timeout"))
	}

	logger.Info("watch module initialized", zap.Duration("interval", m.interval))
	return nil
}

// Start launches the check loop. The first check runs immediately.
func (m *Module) Start(ctx context.Context) error {
	m.started = true
	go m.loop(ctx)
	m.logger.Info("watch module started")
	return nil
}

func (m *Module) Stop() error {
	if m.started {
		m.stopOnce.Do(func() { close(m.stop) })
		<-m.done
	}
	m.logger.Info("watch module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
	}
}

// StatusSnapshot returns the latest observation.
func (m *Module) StatusSnapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.checkOnce(ctx)
	for {
		select {
		case <-ticker.C:
			m.checkOnce(ctx)
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

// checkOnce performs one health check and records the transition.
func (m *Module) checkOnce(ctx context.Context) {
	src := m.source()
	if src == nil {
		// The instance store never came up (module disabled or not yet
		// started). Report unknown instead of touching a nil interface.
		m.setStatus(ctx, Status{State: StateUnknown, CheckedAt: time.Now().UTC()})
		return
	}

	inst, err := src.Current(ctx)
	if err != nil {
		if !errors.Is(err, instances.ErrNotFound) {
			m.logger.Warn("reading saved instance failed", zap.Error(err))
		}
		m.setStatus(ctx, Status{State: StateUnknown, CheckedAt: time.Now().UTC()})
		return
	}

	host := instanceHost(inst.URL)
	if host == "" {
		m.logger.Warn("saved instance has unusable url", zap.String("url", inst.URL))
		m.setStatus(ctx, Status{State: StateUnknown, URL: inst.URL, CheckedAt: time.Now().UTC()})
		return
	}

	ping, err := m.pinger.Ping(ctx, host)
	if err != nil {
		ping = &PingResult{PacketLoss: 1.0, Error: err.Error()}
	}
	matched := m.checker.Check(ctx, host)

	status := Status{
		URL:       inst.URL,
		Ping:      ping,
		Matched:   matched,
		CheckedAt: time.Now().UTC(),
	}
	switch {
	case matched:
		status.State = StateUp
	case ping.Reachable:
		status.State = StateDegraded
	default:
		status.State = StateDown
	}
	m.setStatus(ctx, status)
}

// setStatus stores the observation and publishes a transition event when
// the state changed.
func (m *Module) setStatus(ctx context.Context, status Status) {
	m.mu.Lock()
	prev := m.status.State
	m.status = status
	m.mu.Unlock()

	if prev == status.State || m.bus == nil {
		return
	}

	var topic string
	switch status.State {
	case StateUp:
		topic = TopicUp
	case StateDegraded, StateDown:
		topic = TopicDown
	default:
		return
	}

	m.logger.Info("instance health changed",
		zap.String("from", prev),
		zap.String("to", status.State),
		zap.String("url", status.URL),
	)
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    m.Name(),
		Timestamp: time.Now(),
		Payload:   status,
	})
}

// instanceHost extracts the bare host from a saved instance URL.
func instanceHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
