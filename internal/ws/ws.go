package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/netseek/netseek/pkg/plugin"
)

// writeTimeout bounds a single message write to one client.
const writeTimeout = 5 * time.Second

// Compile-time interface guards.
var (
	_ plugin.Module       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module bridges the event bus onto a WebSocket fan-out.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	hub    *hub

	unsubscribe func()
	stop        chan struct{}
	stopOnce    sync.Once
}

// New creates the WS module.
func New(bus plugin.EventBus) *Module {
	return &Module{
		bus:  bus,
		stop: make(chan struct{}),
	}
}

func (m *Module) Name() string    { return "ws" }
func (m *Module) Version() string { return "0.1.0" }

func (m *Module) Init(_ plugin.Config, logger *zap.Logger) error {
	m.logger = logger
	m.hub = newHub(logger)
	return nil
}

// Start subscribes to the bus and begins forwarding events.
func (m *Module) Start(_ context.Context) error {
	m.unsubscribe = m.bus.SubscribeAll(func(_ context.Context, event plugin.Event) {
		m.hub.broadcast(envelope(event))
	})
	m.logger.Info("ws module started")
	return nil
}

func (m *Module) Stop() error {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.stopOnce.Do(func() { close(m.stop) })
	m.logger.Info("ws module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/feed", Handler: m.handleFeed},
	}
}

// handleFeed upgrades the connection and pumps hub messages to the client
// until it disconnects or the module stops.
func (m *Module) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The UI may be served from a different origin on the LAN.
		InsecureSkipVerify: true,
	})
	if err != nil {
		m.logger.Warn("ws accept failed", zap.Error(err))
		return
	}

	cl := m.hub.register()
	defer m.hub.unregister(cl)

	// CloseRead discards inbound frames; the feed is write-only.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-m.stop:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg := <-cl.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}
