package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/domain"
)

// SourceLister enumerates the sources a scheduled cycle should cover.
type SourceLister interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
}

// Scheduler wraps robfig/cron and triggers an ingestion cycle on a fixed
// spec. A cycle runs every configured source sequentially; per-source
// failures are logged and do not stop the cycle.
type Scheduler struct {
	cron    *cron.Cron
	orch    *Orchestrator
	sources SourceLister
	// slugs, when non-empty, pins the cycle to these sources instead of
	// everything the lister returns.
	slugs  []string
	spec   string
	logger *zap.Logger
}

// NewScheduler creates a scheduler with a cron spec like "@every 6h".
func NewScheduler(orch *Orchestrator, sources SourceLister, slugs []string, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		orch:    orch,
		sources: sources,
		slugs:   slugs,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the cycle and starts the cron loop. One cycle runs
// immediately so a fresh deployment does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	go s.RunCycle(ctx)
	return nil
}

// Stop halts the cron loop and returns once in-flight jobs finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunCycle executes one run per source.
func (s *Scheduler) RunCycle(ctx context.Context) {
	slugs := s.slugs
	if len(slugs) == 0 {
		sources, err := s.sources.ListSources(ctx)
		if err != nil {
			s.logger.Error("list sources failed", zap.Error(err))
			return
		}
		for _, src := range sources {
			slugs = append(slugs, src.Slug)
		}
	}

	if len(slugs) == 0 {
		s.logger.Warn("no sources configured, nothing to ingest")
		return
	}

	for _, slug := range slugs {
		if ctx.Err() != nil {
			return
		}
		summary, err := s.orch.Run(ctx, slug)
		if err != nil {
			s.logger.Error("run failed", zap.String("source", slug), zap.Error(err))
			continue
		}
		s.logger.Info("run complete",
			zap.String("source", slug),
			zap.String("run_id", summary.RunID),
			zap.Int("inserted", summary.Inserted),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))
	}
}
