// Package service is the reconciliation engine: it consumes registry batch
// files, applies each record to its notice inside one transaction per
// notice, and records every suspension decision on the audit trail.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"noticerecon/internal/datahive"
	"noticerecon/internal/mha/stage"
	"noticerecon/internal/notice/store"
	"noticerecon/internal/platform/config"
	"noticerecon/internal/platform/metrics"
)

// TxRunner runs fn inside one transaction boundary. The postgres adapter in
// cmd/server opens a database transaction and carries it in ctx; unit tests
// use Passthrough.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough is a TxRunner without a transaction, for the in-memory store.
type Passthrough struct{}

func (Passthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// CreatedBy value stamped on audit rows written by this engine.
const createdByEngine = "recon-engine"

// BatchSummary is the operator-facing result of one processed batch file.
type BatchSummary struct {
	BatchID     uuid.UUID `json:"batch_id"`
	SourceFile  string    `json:"source_file,omitempty"`
	FileDate    time.Time `json:"file_date"`
	Applied     int       `json:"applied"`
	Skipped     int       `json:"skipped"`
	Errored     int       `json:"errored"`
	Suspensions int       `json:"suspensions"`
	Anomalies   []string  `json:"anomalies,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// MutationError marks a notice whose writes were rolled back. The rest of
// the batch continues.
type MutationError struct {
	NoticeNo string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("notice %s: %v", e.NoticeNo, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Service wires the codec, rule engine, stage table and store into the
// batch processing and exchange operations.
type Service struct {
	store    store.Store
	gateway  datahive.Gateway
	txRunner TxRunner
	stages   *stage.Table
	metrics  *metrics.Metrics
	log      *slog.Logger

	workers            int
	revivalDaysDefault int
	exchange           config.ExchangeConfig
	dedupe             Dedupe
	clock              func() time.Time

	mu        sync.RWMutex
	summaries map[uuid.UUID]*BatchSummary
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDedupe replaces the processed-file dedupe set. The default is
// in-memory; cmd/server installs the Redis-backed set when Redis is
// configured.
func WithDedupe(d Dedupe) Option {
	return func(s *Service) {
		if d != nil {
			s.dedupe = d
		}
	}
}

// New constructs the reconciliation service.
func New(
	st store.Store,
	gateway datahive.Gateway,
	txRunner TxRunner,
	stages *stage.Table,
	cfg config.Server,
	m *metrics.Metrics,
	log *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("lookup gateway is required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if stages == nil {
		return nil, fmt.Errorf("stage table is required")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	workers := cfg.Recon.Workers
	if workers <= 0 {
		workers = 4
	}
	revivalDays := cfg.Recon.RevivalDaysNRO
	if revivalDays <= 0 {
		revivalDays = 90
	}

	s := &Service{
		store:              st,
		gateway:            gateway,
		txRunner:           txRunner,
		stages:             stages,
		metrics:            m,
		log:                log,
		workers:            workers,
		revivalDaysDefault: revivalDays,
		exchange:           cfg.Exchange,
		dedupe:             NewMemoryDedupe(),
		clock:              time.Now,
		summaries:          make(map[uuid.UUID]*BatchSummary),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Summary returns the stored summary for a processed batch, or false when
// the batch ID is unknown.
func (s *Service) Summary(batchID uuid.UUID) (*BatchSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[batchID]
	if !ok {
		return nil, false
	}
	cp := *sum
	return &cp, true
}

func (s *Service) rememberSummary(sum *BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.BatchID] = sum
}
