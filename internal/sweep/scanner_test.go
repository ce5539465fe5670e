package sweep

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/internal/testutil"
	"github.com/netseek/netseek/pkg/netaddr"
)

// checkerFunc adapts a function to the Checker interface.
type checkerFunc func(ctx context.Context, address string) bool

func (f checkerFunc) Check(ctx context.Context, address string) bool { return f(ctx, address) }

// slash26Provider reports a /26 around 192.168.1.70: 61 candidates
// (192.168.1.65 .. 192.168.1.125).
var slash26Provider = netinfo.Static{
	Info: &netinfo.Info{Interface: "eth0", IP: "192.168.1.70", Mask: "255.255.255.192"},
}

func newTestScanner(checker Checker, provider netinfo.Provider, bus *testutil.MockBus, batchSize int) *Scanner {
	return NewScanner(checker, provider, bus, testutil.Logger(), nil, batchSize)
}

func TestRunFindsInstancesInDiscoveryOrder(t *testing.T) {
	targets := map[string]bool{
		"192.168.1.68":  true, // first batch
		"192.168.1.110": true, // later batch
	}
	checker := checkerFunc(func(_ context.Context, addr string) bool {
		return targets[addr]
	})

	bus := testutil.NewMockBus()
	s := newTestScanner(checker, slash26Provider, bus, DefaultBatchSize)

	matches, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	// The two targets sit in different batches, so discovery order is
	// deterministic even though intra-batch completion order is not.
	if matches[0].Address != "192.168.1.68" || matches[0].Label != "Instance 1" {
		t.Errorf("matches[0] = %+v, want 192.168.1.68 / Instance 1", matches[0])
	}
	if matches[1].Address != "192.168.1.110" || matches[1].Label != "Instance 2" {
		t.Errorf("matches[1] = %+v, want 192.168.1.110 / Instance 2", matches[1])
	}

	found := bus.TopicEvents(TopicInstanceFound)
	if len(found) != 2 {
		t.Fatalf("instance_found events = %d, want 2", len(found))
	}
	first := found[0].Payload.(InstanceFoundEvent)
	if len(first.Matches) != 1 {
		t.Errorf("first instance_found carries %d matches, want 1", len(first.Matches))
	}
}

func TestRunEmitsPerProbeMonotonicProgress(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, _ string) bool { return false })
	bus := testutil.NewMockBus()
	s := newTestScanner(checker, slash26Provider, bus, DefaultBatchSize)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	started := bus.TopicEvents(TopicScanStarted)
	if len(started) != 1 {
		t.Fatalf("started events = %d, want 1", len(started))
	}
	if total := started[0].Payload.(ScanStartedEvent).Total; total != 61 {
		t.Errorf("started Total = %d, want 61", total)
	}

	progress := bus.TopicEvents(TopicScanProgress)
	if len(progress) != 61 {
		t.Fatalf("progress events = %d, want one per probe (61)", len(progress))
	}
	prev := -1
	for i, e := range progress {
		p := e.Payload.(ScanProgressEvent)
		if p.Percent < prev {
			t.Fatalf("progress[%d] = %d%%, decreased from %d%%", i, p.Percent, prev)
		}
		prev = p.Percent
	}
	if prev != 100 {
		t.Errorf("final progress = %d%%, want 100", prev)
	}

	last := progress[len(progress)-1].Payload.(ScanProgressEvent)
	if last.Processed != 61 {
		t.Errorf("final Processed = %d, want 61", last.Processed)
	}

	// Progress resets to zero once the scan ends.
	st := s.StatusSnapshot()
	if st.Scanning {
		t.Error("Scanning = true after Run returned")
	}
	if st.Percent != 0 || st.Processed != 0 {
		t.Errorf("post-scan snapshot = %d%% / %d processed, want 0 / 0", st.Percent, st.Processed)
	}
}

func TestRunBoundsConcurrencyToBatchSize(t *testing.T) {
	const batchSize = 5

	var current, peak int64
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return false
	})

	s := newTestScanner(checker, slash26Provider, testutil.NewMockBus(), batchSize)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p := atomic.LoadInt64(&peak); p > batchSize {
		t.Errorf("peak concurrent probes = %d, want <= %d", p, batchSize)
	}
}

func TestRunProbesBatchesInAddressOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	checker := checkerFunc(func(_ context.Context, addr string) bool {
		mu.Lock()
		order = append(order, addr)
		mu.Unlock()
		return false
	})

	s := newTestScanner(checker, slash26Provider, testutil.NewMockBus(), DefaultBatchSize)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	candidates, err := netaddr.HostRange("192.168.1.70", 26)
	if err != nil {
		t.Fatalf("HostRange: %v", err)
	}
	if len(order) != len(candidates) {
		t.Fatalf("probed %d addresses, want %d", len(order), len(candidates))
	}

	// Batches join before the next batch starts, so the first batch's
	// probes (in any order) must all precede any probe of the second.
	firstBatch := make(map[string]bool, DefaultBatchSize)
	for _, addr := range candidates[:DefaultBatchSize] {
		firstBatch[addr] = true
	}
	for _, addr := range order[:DefaultBatchSize] {
		if !firstBatch[addr] {
			t.Fatalf("address %q probed during first batch but belongs to a later one", addr)
		}
	}
}

func TestRunRejectsConcurrentScan(t *testing.T) {
	release := make(chan struct{})
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		<-release
		return false
	})

	s := newTestScanner(checker, slash26Provider, testutil.NewMockBus(), DefaultBatchSize)

	if _, err := s.RunAsync(context.Background()); err != nil {
		t.Fatalf("RunAsync: %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("second Run error = %v, want ErrScanInProgress", err)
	}

	close(release)
	waitIdle(t, s)
}

func TestRunAbortsWithoutProbesWhenNetworkUnknown(t *testing.T) {
	var probes int64
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		atomic.AddInt64(&probes, 1)
		return false
	})

	cases := map[string]error{
		"capability": netinfo.ErrUnavailable,
		"address":    netinfo.ErrNoAddress,
	}
	for name, sentinel := range cases {
		t.Run(name, func(t *testing.T) {
			bus := testutil.NewMockBus()
			s := newTestScanner(checker, netinfo.Static{Err: sentinel}, bus, DefaultBatchSize)

			if _, err := s.Run(context.Background()); !errors.Is(err, sentinel) {
				t.Errorf("Run error = %v, want %v", err, sentinel)
			}
			if n := atomic.LoadInt64(&probes); n != 0 {
				t.Errorf("probes issued = %d, want 0", n)
			}
			if len(bus.Events()) != 0 {
				t.Errorf("events published = %d, want 0", len(bus.Events()))
			}
		})
	}
}

func TestRunEmptyRangeCompletesWithNothingFound(t *testing.T) {
	// A /32 mask leaves no candidates; the scan still terminates cleanly.
	provider := netinfo.Static{
		Info: &netinfo.Info{IP: "10.0.0.1", Mask: "255.255.255.255"},
	}
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		t.Error("probe issued for empty candidate range")
		return false
	})

	bus := testutil.NewMockBus()
	s := newTestScanner(checker, provider, bus, DefaultBatchSize)

	matches, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}

	completed := bus.TopicEvents(TopicScanCompleted)
	if len(completed) != 1 {
		t.Fatalf("completed events = %d, want 1", len(completed))
	}
	if p := completed[0].Payload.(ScanCompletedEvent); p.Total != 0 || p.Found != 0 {
		t.Errorf("completed payload = %+v, want Total 0 Found 0", p)
	}
}

func TestRunDefaultsToSlash24WithoutMask(t *testing.T) {
	provider := netinfo.Static{Info: &netinfo.Info{IP: "192.168.1.5"}}
	checker := checkerFunc(func(_ context.Context, _ string) bool { return false })

	bus := testutil.NewMockBus()
	s := newTestScanner(checker, provider, bus, DefaultBatchSize)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	started := bus.TopicEvents(TopicScanStarted)
	if len(started) != 1 {
		t.Fatalf("started events = %d, want 1", len(started))
	}
	p := started[0].Payload.(ScanStartedEvent)
	if p.Prefix != 24 {
		t.Errorf("Prefix = %d, want default 24", p.Prefix)
	}
	if p.Total != 253 {
		t.Errorf("Total = %d, want 253", p.Total)
	}
}

func TestRunRecoversFromCheckerPanic(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, _ string) bool {
		panic("probe blew up")
	})

	bus := testutil.NewMockBus()
	s := newTestScanner(checker, slash26Provider, bus, DefaultBatchSize)

	_, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("Run after panic: want error, got nil")
	}

	if events := bus.TopicEvents(TopicScanError); len(events) != 1 {
		t.Errorf("scan.error events = %d, want 1", len(events))
	}

	// The scanner must be released for the next scan.
	if st := s.StatusSnapshot(); st.Scanning {
		t.Error("Scanning = true after panic recovery")
	}
}

// waitIdle polls until the scanner reports not scanning.
func waitIdle(t *testing.T, s *Scanner) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if !s.StatusSnapshot().Scanning {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scanner still busy after 5s")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
