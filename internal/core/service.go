package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// Options configures a Service. Build it with OptionsFromConfig.
type Options struct {
	// Partitions is the default tab list when a request names none.
	Partitions []string

	FetchConcurrency int
	FetchTimeout     time.Duration

	Batch           BatchOptions
	OptionalColumns []string

	// Record carries the row rules; Category is filled in per partition.
	Record RecordRules

	ErrorSampleSize     int
	MaxHeaderSearchRows int
	ColumnTokens        map[string][]string

	// CategoryFor maps a tab name to its catalog category.
	CategoryFor func(partition string) string
}

// OptionsFromConfig builds Options from the environment config and rules.
func OptionsFromConfig(cfg *config.Config, rules *config.Rules) Options {
	if rules == nil {
		rules = config.DefaultRules()
	}
	return Options{
		Partitions:       cfg.Source.Partitions,
		FetchConcurrency: cfg.Source.Concurrency,
		FetchTimeout:     cfg.Source.Timeout,
		Batch: BatchOptions{
			Size:         cfg.Sync.BatchSize,
			ChunkTimeout: cfg.Sync.ChunkTimeout,
			Delay:        cfg.Sync.ChunkDelay,
		},
		OptionalColumns: cfg.Sync.OptionalColumns,
		Record: RecordRules{
			TaxRate:             cfg.Sync.TaxRate,
			IdentifierMinDigits: cfg.Sync.IdentifierMinDigits,
			SupplierFallback:    cfg.Sync.SupplierFallback,
			Eligibility: EligibilityRules{
				MinStock:            cfg.Sync.MinStock,
				DimensionCategories: rules.DimensionCategories,
			},
		},
		ErrorSampleSize:     cfg.Sync.ErrorSampleSize,
		MaxHeaderSearchRows: cfg.Sync.MaxHeaderSearchRows,
		ColumnTokens:        rules.ColumnTokens,
		CategoryFor:         rules.CategoryFor,
	}
}

func (o *Options) applyDefaults() {
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 8 * time.Second
	}
	if o.ErrorSampleSize <= 0 {
		o.ErrorSampleSize = 10
	}
	if o.MaxHeaderSearchRows <= 0 {
		o.MaxHeaderSearchRows = 10
	}
	if o.Record.IdentifierMinDigits <= 0 {
		o.Record.IdentifierMinDigits = 4
	}
	if o.CategoryFor == nil {
		o.CategoryFor = strings.TrimSpace
	}
}

// Service runs catalog synchronizations.
type Service struct {
	store   Store
	source  Source
	opts    Options
	batcher *Batcher
	limiter *RunLimiter

	mu     sync.RWMutex
	status SyncStatus
	last   *RunReport
}

// NewService creates a Service reading from source and writing to store.
func NewService(store Store, source Source, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		store:   store,
		source:  source,
		opts:    opts,
		batcher: NewBatcher(store, NewSchemaAdapter(store, opts.OptionalColumns), opts.Batch),
		limiter: NewRunLimiter(1),
		status:  SyncStatus{Phase: PhaseIdle},
	}
}

// Sync runs one synchronization and returns its report. The only error is
// ErrSyncInProgress; every other failure is described in the report.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (*RunReport, error) {
	if err := s.limiter.TryAcquire(); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)
	start := time.Now()

	partitions := s.partitionsFor(req)
	s.beginRun(runID, start)
	defer s.endRun()

	report := &RunReport{
		RunID:      runID,
		DryRun:     req.DryRun,
		StartedAt:  start,
		Partitions: make(map[string]*PartitionReport, len(partitions)),
		Order:      partitions,
	}
	logger.Info("sync started",
		"partitions", len(partitions),
		"clear_first", req.ClearFirst,
		"dry_run", req.DryRun,
	)

	priors, err := s.store.PriorPrices(ctx)
	if err != nil {
		logger.Warn("prior prices unavailable", "error", err)
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("prior prices unavailable, every price is compared against an empty catalog: %v", err))
		priors = map[string]float64{}
	}

	s.setPhase(PhaseFetching, "")
	fetched := s.fetchAll(ctx, partitions)

	resolver := NewColumnResolver(s.opts.ColumnTokens)
	deduper := NewPartitionDeduper()
	reports := make([]*PartitionReport, 0, len(partitions))
	var all []Product

	for i, name := range partitions {
		pr, products := s.processPartition(ctx, resolver, name, fetched[i], priors)

		if len(products) > 0 {
			s.setPhase(PhaseDeduplicating, name)
			if first, dup := deduper.Check(name, products); dup {
				pr.Status = PartitionDuplicate
				pr.DuplicateOf = first
				pr.Warnings = append(pr.Warnings, fmt.Sprintf("skipped: same products as %q", first))
				logger.Info("partition skipped as duplicate", "partition", name, "duplicate_of", first)
				products = nil
			}
		}

		s.setPhase(PhaseReporting, name)
		reports = append(reports, pr)
		report.Partitions[name] = pr
		all = append(all, products...)
	}

	records := DedupeByIdentifier(all)
	commit := CommitResult{Submitted: len(records)}
	switch {
	case len(records) == 0:
		logger.Warn("nothing to commit")
	case req.DryRun:
		logger.Info("dry run, skipping commit", "products", len(records))
	default:
		s.setPhase(PhaseCommitting, "")
		if req.ClearFirst {
			if n, err := s.store.DeleteAll(ctx); err != nil {
				logger.Error("catalog pre-clear failed", "error", err)
				report.Warnings = append(report.Warnings, fmt.Sprintf("pre-clear failed, committing over the existing catalog: %v", err))
			} else {
				logger.Info("catalog cleared", "deleted", n)
			}
		}
		commit = s.batcher.Commit(ctx, records)
		report.BatchErrors = commit.Errors
		report.Warnings = append(report.Warnings, commit.Notes...)
		for _, col := range commit.Stripped {
			report.Warnings = append(report.Warnings, fmt.Sprintf("store has no %q column; products written without it", col))
		}
	}

	if !req.DryRun {
		for i := range records {
			pr := report.Partitions[records[i].SourcePartition]
			if pr == nil || commit.Chunks == 0 {
				continue
			}
			if commit.FailedIdentifier(records[i].Identifier) {
				pr.Failed++
			} else {
				pr.Committed++
			}
		}
	}

	s.setPhase(PhaseReporting, "")
	report.Statistics = BuildStatistics(records, reports, commit)
	report.Success = len(records) > 0

	done := commit.Committed
	if req.DryRun {
		done = len(records)
	}
	report.Message = Summary(done, len(records), report.WarningCount(), req.DryRun)
	if !report.Success {
		report.Message += fmt.Sprintf(" (%v)", ErrNoCommittableRecords)
	}
	report.DurationMs = time.Since(start).Milliseconds()

	logger.Info("sync completed",
		"success", report.Success,
		"submitted", commit.Submitted,
		"committed", commit.Committed,
		"failed", commit.Failed,
		"warnings", report.WarningCount(),
		"duration_ms", report.DurationMs,
	)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, nil
}

// partitionsFor returns the requested tabs, or the configured ones, with
// blanks and repeats removed.
func (s *Service) partitionsFor(req SyncRequest) []string {
	src := req.Partitions
	if len(src) == 0 {
		src = s.opts.Partitions
	}
	seen := make(map[string]bool, len(src))
	out := make([]string, 0, len(src))
	for _, p := range src {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

type fetchResult struct {
	text     string
	err      error
	duration time.Duration
}

// fetchAll downloads every tab with bounded parallelism. Results keep the
// order of partitions; a failed tab never stops the others.
func (s *Service) fetchAll(ctx context.Context, partitions []string) []fetchResult {
	results := make([]fetchResult, len(partitions))

	var g errgroup.Group
	g.SetLimit(s.opts.FetchConcurrency)
	for i, name := range partitions {
		g.Go(func() error {
			results[i] = s.fetchOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) fetchOne(ctx context.Context, name string) (res fetchResult) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.err = &TransportError{Partition: name, Err: fmt.Errorf("panic: %v", r)}
		}
		res.duration = time.Since(start)
	}()

	text, err := s.source.Fetch(ctx, name)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) && !errors.Is(err, ErrEmptySource) {
			err = &TransportError{Partition: name, Err: err}
		}
		return fetchResult{err: err}
	}
	return fetchResult{text: text}
}

// processPartition turns one fetched tab into products. It never fails:
// every problem is recorded on the returned report.
func (s *Service) processPartition(ctx context.Context, resolver *ColumnResolver, name string, f fetchResult, priors map[string]float64) (pr *PartitionReport, products []Product) {
	logger := logging.WithFields(ctx, "partition", name)
	pr = &PartitionReport{
		Partition: name,
		Category:  s.opts.CategoryFor(name),
		FetchMs:   f.duration.Milliseconds(),
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("partition processing panicked", "panic", r)
			pr.Status = PartitionStructuralError
			pr.Error = fmt.Sprintf("internal error: %v", r)
			pr.Code = defaultMessage.Code
			products = nil
		}
	}()

	fail := func(status PartitionStatus, err error) (*PartitionReport, []Product) {
		pr.Status = status
		pr.Error = err.Error()
		pr.Code = MapError(err).Code
		logger.Warn("partition failed",
			"status", status,
			"error", err,
			"code", pr.Code,
			"hint", FormatUserError(err),
		)
		return pr, nil
	}

	if f.err != nil {
		if errors.Is(f.err, ErrEmptySource) {
			return fail(PartitionEmpty, f.err)
		}
		return fail(PartitionSourceError, f.err)
	}

	s.setPhase(PhaseParsing, name)
	rows, stats, err := ParseRecords(f.text)
	if err != nil {
		return fail(PartitionEmpty, err)
	}
	if stats.UnterminatedQuoteLine > 0 {
		pr.Warnings = append(pr.Warnings, fmt.Sprintf(
			"quote opened on line %d is never closed; the rest of the tab was read into one cell",
			stats.UnterminatedQuoteLine))
	}

	headerIdx, cols, labels, err := resolver.ResolveHeader(rows, name, s.opts.MaxHeaderSearchRows)
	if err != nil {
		return fail(PartitionStructuralError, err)
	}
	pr.Columns = labels
	pr.HeaderRow = headerIdx + 1

	s.setPhase(PhaseValidating, name)
	data := rows[headerIdx+1:]
	pr.SourceRows = len(data)

	rules := s.opts.Record
	rules.Category = pr.Category
	builder := NewRecordBuilder(name, cols, rules)

	products = make([]Product, 0, len(data))
	for i, row := range data {
		p, err := builder.Build(row, i+1)
		if err != nil {
			s.recordRowError(pr, err)
			continue
		}
		if p.EligibleForWeb {
			pr.Eligible++
		} else {
			pr.Ineligible++
		}
		products = append(products, p)
	}
	pr.ParsedRows = len(products)
	pr.PriceChanges = ApplyPriceChanges(products, priors)
	pr.Status = PartitionProcessed

	logger.Info("partition processed",
		"rows", pr.SourceRows,
		"products", pr.ParsedRows,
		"rejected", pr.RejectedRows,
		"eligible", pr.Eligible,
		"price_changes", pr.PriceChanges,
	)
	return pr, products
}

func (s *Service) recordRowError(pr *PartitionReport, err error) {
	pr.RejectedRows++
	pr.RowErrorCount++
	if pr.RejectionReasons == nil {
		pr.RejectionReasons = make(map[string]int)
	}
	reason := err.Error()
	var re *RowError
	if errors.As(err, &re) {
		reason = re.Reason
	}
	pr.RejectionReasons[reason]++
	if len(pr.RowErrors) < s.opts.ErrorSampleSize {
		pr.RowErrors = append(pr.RowErrors, err.Error())
	}
}

// Status returns a snapshot of the current run and the last report.
func (s *Service) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	if s.last != nil {
		success := s.last.Success
		at := s.last.StartedAt
		st.LastRunID = s.last.RunID
		st.LastSuccess = &success
		st.LastMessage = s.last.Message
		st.LastRunAt = &at
	}
	return st
}

// LastReport returns the report of the most recent finished run, or nil.
func (s *Service) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// WaitForIdle blocks until no run is active or ctx is done.
func (s *Service) WaitForIdle(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) beginRun(runID string, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = SyncStatus{Running: true, RunID: runID, Phase: PhaseIdle, StartedAt: &start}
}

func (s *Service) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = SyncStatus{Phase: PhaseIdle}
}

func (s *Service) setPhase(phase SyncPhase, partition string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Phase = phase
	s.status.Partition = partition
}
