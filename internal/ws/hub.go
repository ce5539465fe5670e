package ws

import (
	"sync"

	"go.uber.org/zap"
)

// sendBuffer is the per-client message queue depth. A client that falls
// this far behind starts losing messages rather than stalling the bus.
const sendBuffer = 32

// client is one connected WebSocket consumer.
type client struct {
	send chan Message
}

// hub tracks connected clients and fans messages out to them.
type hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) register() *client {
	c := &client{send: make(chan Message, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client connected", zap.Int("clients", n))
	return c
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client disconnected", zap.Int("clients", n))
}

// broadcast queues msg for every client. Full queues drop the message.
func (h *hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("ws client lagging, message dropped",
				zap.String("type", string(msg.Type)))
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
