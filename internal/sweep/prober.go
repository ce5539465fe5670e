package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusPath is the well-known endpoint a running instance answers on.
const StatusPath = "/trpc/system.status"

// runningState is the expected result.data value, compared case-insensitively.
const runningState = "running"

// DefaultProbeTimeout is the hard per-probe deadline.
const DefaultProbeTimeout = 2 * time.Second

// DefaultProbePort is the port probed on each candidate address.
const DefaultProbePort = 80

// maxStatusBody caps how much of a response body a probe will read.
const maxStatusBody = 1 << 16

// Checker decides whether a candidate address hosts a running instance.
// Every failure mode (dial error, timeout, bad status code, malformed
// body) collapses to false.
type Checker interface {
	Check(ctx context.Context, address string) bool
}

// Compile-time interface guard.
var _ Checker = (*HTTPChecker)(nil)

// HTTPChecker probes candidates with an unauthenticated HTTP GET against
// StatusPath and matches on the instance status payload.
type HTTPChecker struct {
	client  *http.Client
	port    int
	timeout time.Duration
}

// statusResponse is the expected success body shape.
type statusResponse struct {
	Result struct {
		Data string `json:"data"`
	} `json:"result"`
}

// NewHTTPChecker creates a checker probing the given port with the given
// per-probe timeout. Zero values select DefaultProbePort and
// DefaultProbeTimeout.
func NewHTTPChecker(port int, timeout time.Duration) *HTTPChecker {
	if port <= 0 {
		port = DefaultProbePort
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPChecker{
		client: &http.Client{
			Transport: &http.Transport{
				// Each probe targets a distinct host once; keep-alives
				// would only pin sockets open.
				DisableKeepAlives: true,
				Proxy:             nil,
			},
		},
		port:    port,
		timeout: timeout,
	}
}

// Check probes one address. The in-flight request is cancelled when the
// timeout elapses, and the timeout counts as a non-match.
func (c *HTTPChecker) Check(ctx context.Context, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(address, strconv.Itoa(c.port)), StatusPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	var status statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatusBody)).Decode(&status); err != nil {
		return false
	}
	return strings.EqualFold(status.Result.Data, runningState)
}
