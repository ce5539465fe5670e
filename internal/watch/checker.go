// Package watch keeps an eye on the saved NetSeek instance: it pings the
// host on an interval, re-probes the instance status endpoint, and
// publishes up/down transitions on the event bus.
package watch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// PingResult is the outcome of a single reachability check.
type PingResult struct {
	Reachable  bool    `json:"reachable"`
	LatencyMs  float64 `json:"latency_ms"`
	PacketLoss float64 `json:"packet_loss"`
	Error      string  `json:"error,omitempty"`
}

// Pinger checks whether a host answers ICMP echo.
type Pinger interface {
	Ping(ctx context.Context, host string) (*PingResult, error)
}

// Compile-time interface guard.
var _ Pinger = (*ICMPPinger)(nil)

// ICMPPinger pings hosts via pro-bing.
type ICMPPinger struct {
	timeout time.Duration
	count   int
}

// NewICMPPinger creates a Pinger sending count echoes per check.
func NewICMPPinger(timeout time.Duration, count int) *ICMPPinger {
	return &ICMPPinger{
		timeout: timeout,
		count:   count,
	}
}

func (p *ICMPPinger) Ping(ctx context.Context, host string) (*PingResult, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return nil, fmt.Errorf("create pinger: %w", err)
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	// Run in a goroutine so the check honors context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			return &PingResult{PacketLoss: 1.0, Error: runErr.Error()}, nil
		}
		stats := pinger.Statistics()
		result := &PingResult{
			Reachable:  stats.PacketsRecv > 0,
			LatencyMs:  float64(stats.AvgRtt) / float64(time.Millisecond),
			PacketLoss: stats.PacketLoss / 100.0, // pro-bing reports 0-100
		}
		if !result.Reachable {
			result.Error = "all packets lost"
		}
		return result, nil

	case <-ctx.Done():
		pinger.Stop()
		return &PingResult{PacketLoss: 1.0, Error: "check cancelled"}, nil
	}
}
