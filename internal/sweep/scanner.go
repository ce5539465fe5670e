package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/metrics"
	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/pkg/netaddr"
	"github.com/netseek/netseek/pkg/plugin"
)

// DefaultBatchSize bounds how many probes run concurrently. Batches run
// strictly in sequence: the next batch starts only after every probe in
// the current one has settled.
const DefaultBatchSize = 20

// defaultPrefix applies when the device reports no subnet mask.
const defaultPrefix = 24

// ErrScanInProgress is returned when a scan is requested while another is
// still running. Concurrent scans are rejected, never superseded.
var ErrScanInProgress = errors.New("sweep: scan already in progress")

// Status is a point-in-time snapshot of the scanner, safe to serialize.
type Status struct {
	Scanning  bool    `json:"scanning"`
	ScanID    string  `json:"scan_id,omitempty"`
	Total     int     `json:"total"`
	Processed int     `json:"processed"`
	Percent   int     `json:"percent"`
	Matches   []Match `json:"matches"`
}

// Scanner drives a full subnet sweep: candidate enumeration, batched
// concurrent probing, and per-probe progress/result events on the bus.
// One Scanner runs at most one scan at a time.
type Scanner struct {
	checker   Checker
	provider  netinfo.Provider
	bus       plugin.EventBus
	logger    *zap.Logger
	metrics   *metrics.Metrics
	batchSize int

	mu        sync.Mutex
	scanning  bool
	scanID    string
	total     int
	processed int
	percent   int
	matches   []Match
	last      *ScanCompletedEvent
}

// scanJob holds the immutable inputs of one scan invocation.
type scanJob struct {
	id         string
	ip         string
	prefix     int
	candidates []string
	startedAt  time.Time
}

// NewScanner creates a Scanner. metrics may be nil (tests); everything else
// is required.
func NewScanner(checker Checker, provider netinfo.Provider, bus plugin.EventBus,
	logger *zap.Logger, m *metrics.Metrics, batchSize int) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scanner{
		checker:   checker,
		provider:  provider,
		bus:       bus,
		logger:    logger,
		metrics:   m,
		batchSize: batchSize,
	}
}

// Run executes a full sweep synchronously and returns the matches in
// discovery order. An empty result is a valid outcome, not an error.
func (s *Scanner) Run(ctx context.Context) ([]Match, error) {
	job, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, job)
}

// RunAsync starts a sweep in the background after validating preconditions
// synchronously, and returns the scan ID. Progress and results arrive as
// bus events; errors during the background phase surface as scan.error
// events and in the logs.
func (s *Scanner) RunAsync(ctx context.Context) (string, error) {
	job, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	go func() {
		if _, err := s.finish(ctx, job); err != nil {
			s.logger.Error("background scan failed", zap.String("scan_id", job.id), zap.Error(err))
		}
	}()
	return job.id, nil
}

// StatusSnapshot returns the current scanner state. After a scan ends the
// progress reads zero again; Matches then reflect the last completed scan.
func (s *Scanner) StatusSnapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Scanning:  s.scanning,
		ScanID:    s.scanID,
		Total:     s.total,
		Processed: s.processed,
		Percent:   s.percent,
		Matches:   append([]Match(nil), s.matches...),
	}
	if !s.scanning && s.last != nil {
		st.ScanID = s.last.ScanID
		st.Matches = append([]Match(nil), s.last.Matches...)
	}
	if st.Matches == nil {
		st.Matches = []Match{}
	}
	return st
}

// begin validates preconditions, computes the candidate range, claims the
// scanner, and publishes the started event. No probes are issued here.
func (s *Scanner) begin(ctx context.Context) (*scanJob, error) {
	info, err := s.provider.Current()
	if err != nil {
		// Capability and address failures abort before any probe.
		return nil, err
	}

	prefix := defaultPrefix
	if info.Mask != "" {
		prefix = netaddr.PrefixLength(info.Mask)
	}

	candidates, err := netaddr.HostRange(info.IP, prefix)
	if err != nil {
		return nil, fmt.Errorf("sweep: candidate range: %w", err)
	}

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	job := &scanJob{
		id:         uuid.New().String(),
		ip:         info.IP,
		prefix:     prefix,
		candidates: candidates,
		startedAt:  time.Now(),
	}
	s.scanning = true
	s.scanID = job.id
	s.total = len(candidates)
	s.processed = 0
	s.percent = 0
	s.matches = nil
	s.mu.Unlock()

	s.logger.Info("scan started",
		zap.String("scan_id", job.id),
		zap.String("ip", info.IP),
		zap.Int("prefix", prefix),
		zap.Int("candidates", len(candidates)),
	)
	s.publish(ctx, TopicScanStarted, ScanStartedEvent{
		ScanID: job.id,
		IP:     info.IP,
		Prefix: prefix,
		Total:  len(candidates),
	})
	return job, nil
}

// finish probes every candidate in sequential batches and publishes the
// terminal event. It always releases the scanner and resets progress to
// zero, whatever the outcome.
func (s *Scanner) finish(ctx context.Context, job *scanJob) (matches []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep: unexpected scan failure: %v", r)
			s.logger.Error("scan panicked", zap.String("scan_id", job.id), zap.Any("panic", r))
			s.publish(ctx, TopicScanError, ScanErrorEvent{ScanID: job.id, Error: err.Error()})
			s.observeScan(metrics.OutcomeError, job.startedAt)
		}

		s.mu.Lock()
		s.scanning = false
		s.scanID = ""
		s.total = 0
		s.processed = 0
		s.percent = 0
		s.matches = nil
		s.mu.Unlock()
	}()

	// Panics inside probe goroutines are captured and re-raised here so
	// the deferred recovery above sees them.
	var panicMu sync.Mutex
	var panicked any

	total := len(job.candidates)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}

		// All probes of a batch run concurrently; the batch joins before
		// the next one starts, bounding outstanding requests.
		var wg sync.WaitGroup
		for _, addr := range job.candidates[start:end] {
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicMu.Lock()
						if panicked == nil {
							panicked = r
						}
						panicMu.Unlock()
					}
				}()
				s.recordProbe(ctx, job, addr, s.checker.Check(ctx, addr))
			}(addr)
		}
		wg.Wait()
	}

	if panicked != nil {
		panic(panicked)
	}

	s.mu.Lock()
	matches = append([]Match(nil), s.matches...)
	s.mu.Unlock()
	if matches == nil {
		matches = []Match{}
	}

	completed := ScanCompletedEvent{
		ScanID:  job.id,
		Total:   total,
		Found:   len(matches),
		Matches: matches,
	}
	s.mu.Lock()
	s.last = &completed
	s.mu.Unlock()

	outcome := metrics.OutcomeCompleted
	if len(matches) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	s.observeScan(outcome, job.startedAt)

	s.logger.Info("scan completed",
		zap.String("scan_id", job.id),
		zap.Int("candidates", total),
		zap.Int("found", len(matches)),
		zap.Duration("elapsed", time.Since(job.startedAt)),
	)
	s.publish(ctx, TopicScanCompleted, completed)

	return matches, nil
}

// recordProbe folds one probe result into the scan state. Progress is
// updated and published per probe, not per batch, so observers get smooth
// feedback. Events are published under the state lock to keep the emitted
// percent sequence monotonic; handlers must not call back into the Scanner.
func (s *Scanner) recordProbe(ctx context.Context, job *scanJob, addr string, matched bool) {
	if s.metrics != nil {
		result := metrics.ResultMiss
		if matched {
			result = metrics.ResultMatch
		}
		s.metrics.ProbesTotal.WithLabelValues(result).Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++
	if s.total > 0 {
		s.percent = s.processed * 100 / s.total
	}

	if matched {
		match := Match{
			Address: addr,
			Label:   fmt.Sprintf("Instance %d", len(s.matches)+1),
		}
		s.matches = append(s.matches, match)
		if s.metrics != nil {
			s.metrics.InstancesFound.Inc()
		}
		s.logger.Info("instance found",
			zap.String("scan_id", job.id),
			zap.String("address", addr),
			zap.String("label", match.Label),
		)
		s.publish(ctx, TopicInstanceFound, InstanceFoundEvent{
			ScanID:  job.id,
			Match:   match,
			Matches: append([]Match(nil), s.matches...),
		})
	}

	s.publish(ctx, TopicScanProgress, ScanProgressEvent{
		ScanID:    job.id,
		Processed: s.processed,
		Total:     s.total,
		Percent:   s.percent,
	})
}

func (s *Scanner) observeScan(outcome string, startedAt time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScansTotal.WithLabelValues(outcome).Inc()
	s.metrics.ScanDuration.Observe(time.Since(startedAt).Seconds())
}

func (s *Scanner) publish(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "sweep",
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
