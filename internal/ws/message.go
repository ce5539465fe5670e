// Package ws streams NetSeek events to browser clients over WebSocket.
// Every event published on the bus is wrapped in a Message envelope and
// fanned out to all connected clients.
package ws

import (
	"strings"
	"time"

	"github.com/netseek/netseek/internal/sweep"
	"github.com/netseek/netseek/pkg/plugin"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageScanStarted       MessageType = "scan.started"
	MessageScanProgress      MessageType = "scan.progress"
	MessageScanInstanceFound MessageType = "scan.instance_found"
	MessageScanCompleted     MessageType = "scan.completed"
	MessageScanError         MessageType = "scan.error"
	MessageWatchUp           MessageType = "watch.up"
	MessageWatchDown         MessageType = "watch.down"
	MessageInstanceConnected MessageType = "instances.connected"
	MessageInstanceForgotten MessageType = "instances.forgotten"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	ScanID    string      `json:"scan_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// envelope converts a bus event into its wire form. Sweep topics lose
// their module prefix so clients see "scan.*" like the REST surface.
func envelope(e plugin.Event) Message {
	msg := Message{
		Type:      MessageType(strings.TrimPrefix(e.Topic, "sweep.")),
		Timestamp: e.Timestamp,
		Data:      e.Payload,
	}
	switch p := e.Payload.(type) {
	case sweep.ScanStartedEvent:
		msg.ScanID = p.ScanID
	case sweep.ScanProgressEvent:
		msg.ScanID = p.ScanID
	case sweep.InstanceFoundEvent:
		msg.ScanID = p.ScanID
	case sweep.ScanCompletedEvent:
		msg.ScanID = p.ScanID
	case sweep.ScanErrorEvent:
		msg.ScanID = p.ScanID
	}
	return msg
}
