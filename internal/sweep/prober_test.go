package sweep

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// newProbeTarget starts a local HTTP server and returns a checker aimed at
// its port plus the server's host address.
func newProbeTarget(t *testing.T, timeout time.Duration, handler http.HandlerFunc) (*HTTPChecker, string) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return NewHTTPChecker(port, timeout), host
}

func TestCheckMatchesRunningInstance(t *testing.T) {
	checker, host := newProbeTarget(t, DefaultProbeTimeout, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatusPath {
			t.Errorf("probe path = %q, want %q", r.URL.Path, StatusPath)
		}
		w.Write([]byte(`{"result":{"data":"running"}}`))
	})

	if !checker.Check(context.Background(), host) {
		t.Error("Check = false for running instance, want true")
	}
}

func TestCheckMatchIsCaseInsensitive(t *testing.T) {
	checker, host := newProbeTarget(t, DefaultProbeTimeout, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"data":"RUNNING"}}`))
	})

	if !checker.Check(context.Background(), host) {
		t.Error(`Check = false for data "RUNNING", want true`)
	}
}

func TestCheckNonMatches(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"wrong state": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":{"data":"stopped"}}`))
		},
		"error status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":`))
		},
		"wrong shape": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":{"data":123}}`))
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			checker, host := newProbeTarget(t, DefaultProbeTimeout, handler)
			if checker.Check(context.Background(), host) {
				t.Error("Check = true, want false")
			}
		})
	}
}

func TestCheckTimesOutWithoutPanic(t *testing.T) {
	release := make(chan struct{})

	checker, host := newProbeTarget(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		<-release // hold the response past the probe deadline
	})
	// Registered after newProbeTarget so this runs before ts.Close,
	// which otherwise waits forever on the blocked handler.
	t.Cleanup(func() { close(release) })

	start := time.Now()
	if checker.Check(context.Background(), host) {
		t.Error("Check = true for timed-out probe, want false")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Check took %v, want cancellation near the 50ms deadline", elapsed)
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on by closing a fresh listener.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	port, _ := strconv.Atoi(portStr)

	checker := NewHTTPChecker(port, 500*time.Millisecond)
	if checker.Check(context.Background(), "127.0.0.1") {
		t.Error("Check = true for refused connection, want false")
	}
}

func TestNewHTTPCheckerDefaults(t *testing.T) {
	c := NewHTTPChecker(0, 0)
	if c.port != DefaultProbePort {
		t.Errorf("port = %d, want %d", c.port, DefaultProbePort)
	}
	if c.timeout != DefaultProbeTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultProbeTimeout)
	}
}
