package sweep

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/internal/testutil"
	"github.com/netseek/netseek/pkg/plugin"
)

// newTestModule builds an initialized Module with a stubbed prober and a
// tiny, instantly-scanned subnet.
func newTestModule(t *testing.T, checker Checker, provider netinfo.Provider) *Module {
	t.Helper()
	m := New(testutil.NewMockBus(), nil)
	m.checker = checker
	m.provider = provider
	if err := m.Init(emptyConfig{}, testutil.Logger()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

// emptyConfig is a zero-value plugin.Config.
type emptyConfig struct{}

func (emptyConfig) GetString(string) string          { return "" }
func (emptyConfig) GetInt(string) int                { return 0 }
func (emptyConfig) GetBool(string) bool              { return false }
func (emptyConfig) GetDuration(string) time.Duration { return 0 }
func (emptyConfig) IsSet(string) bool                { return false }
func (emptyConfig) Sub(string) plugin.Config         { return emptyConfig{} }
func (emptyConfig) Unmarshal(any) error              { return nil }

func findRoute(t *testing.T, m *Module, method, path string) http.HandlerFunc {
	t.Helper()
	for _, r := range m.Routes() {
		if r.Method == method && r.Path == path {
			return r.Handler
		}
	}
	t.Fatalf("route %s %s not found", method, path)
	return nil
}

func TestHandleStartScanAccepted(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, _ string) bool { return false })
	m := newTestModule(t, checker, netinfo.Static{
		Info: &netinfo.Info{IP: "10.0.0.1", Mask: "255.255.255.252"}, // one candidate
	})

	rec := httptest.NewRecorder()
	findRoute(t, m, "POST", "/scan")(rec, httptest.NewRequest("POST", "/scan", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /scan = %d, want 202", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["scan_id"] == "" {
		t.Error("response missing scan_id")
	}
	waitIdle(t, m.Scanner())
}

func TestHandleStartScanConflict(t *testing.T) {
	release := make(chan struct{})
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		<-release
		return false
	})
	m := newTestModule(t, checker, slash26Provider)

	handler := findRoute(t, m, "POST", "/scan")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/scan", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first POST /scan = %d, want 202", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/scan", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second POST /scan = %d, want 409", rec.Code)
	}

	close(release)
	waitIdle(t, m.Scanner())
}

func TestHandleStartScanNetworkErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"capability", netinfo.ErrUnavailable, http.StatusServiceUnavailable},
		{"address", netinfo.ErrNoAddress, http.StatusUnprocessableEntity},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			checker := checkerFunc(func(_ context.Context, _ string) bool { return false })
			m := newTestModule(t, checker, netinfo.Static{Err: tt.err})

			rec := httptest.NewRecorder()
			findRoute(t, m, "POST", "/scan")(rec, httptest.NewRequest("POST", "/scan", nil))
			if rec.Code != tt.want {
				t.Errorf("POST /scan = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleScanStatusIdle(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, _ string) bool { return false })
	m := newTestModule(t, checker, slash26Provider)

	rec := httptest.NewRecorder()
	findRoute(t, m, "GET", "/scan")(rec, httptest.NewRequest("GET", "/scan", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /scan = %d, want 200", rec.Code)
	}
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Scanning {
		t.Error("Scanning = true on idle scanner")
	}
	if st.Matches == nil {
		t.Error("Matches is null, want empty array")
	}
}

func TestHandleProbe(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, addr string) bool {
		return addr == "10.0.0.7"
	})
	m := newTestModule(t, checker, slash26Provider)
	handler := findRoute(t, m, "POST", "/probe")

	tests := []struct {
		body      string
		wantCode  int
		wantMatch bool
	}{
		{`{"address":"10.0.0.7"}`, http.StatusOK, true},
		{`{"address":"10.0.0.8"}`, http.StatusOK, false},
		{`{"address":"not-an-ip"}`, http.StatusBadRequest, false},
		{`{"address":""}`, http.StatusBadRequest, false},
		{`{broken`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/probe", strings.NewReader(tt.body))
		handler(rec, req)

		if rec.Code != tt.wantCode {
			t.Errorf("POST /probe %s = %d, want %d", tt.body, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		var resp struct {
			Match bool `json:"match"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Match != tt.wantMatch {
			t.Errorf("probe %s match = %v, want %v", tt.body, resp.Match, tt.wantMatch)
		}
	}
}
