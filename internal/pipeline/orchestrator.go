package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/cleaner"
	"github.com/werklead/go-ingest/internal/domain"
	"github.com/werklead/go-ingest/internal/extract"
	"github.com/werklead/go-ingest/internal/fetch"
	"github.com/werklead/go-ingest/internal/parse"
	"github.com/werklead/go-ingest/internal/resolve"
)

// Fetcher retrieves a page body, threading per-run session state.
type Fetcher interface {
	Fetch(ctx context.Context, url string, session *fetch.Session) ([]byte, *fetch.Session, error)
}

// TextExtractor derives best-effort structured fields from free text.
type TextExtractor interface {
	Extract(ctx context.Context, text string) extract.Result
}

// Deduplicator answers whether a posting was already ingested.
type Deduplicator interface {
	Exists(ctx context.Context, sourceSlug string, sourceID int64, externalID string) (bool, error)
	MarkSeen(ctx context.Context, sourceSlug, externalID string) error
}

// EntityResolver finds-or-creates companies and contacts.
type EntityResolver interface {
	ResolveCompany(ctx context.Context, obs resolve.CompanyObservation) (resolve.CompanyResult, error)
	ResolveContact(ctx context.Context, companyID int64, obs resolve.ContactObservation) (*resolve.ContactResult, error)
}

// VacancyWriter is the persistence surface the orchestrator needs.
type VacancyWriter interface {
	ResolveSource(ctx context.Context, slug string) (*domain.Source, error)
	InsertVacancy(ctx context.Context, v *domain.Vacancy) (bool, error)
}

// SearchSink mirrors inserted vacancies into a search index. Optional.
type SearchSink interface {
	BulkIndex(ctx context.Context, vacancies []*domain.Vacancy) error
}

// CursorStore persists the resume pointer between runs. Optional.
type CursorStore interface {
	Load(ctx context.Context, sourceSlug string) (*domain.RunCursor, error)
	Save(ctx context.Context, sourceSlug string, cursor *domain.RunCursor) error
	Clear(ctx context.Context, sourceSlug string) error
}

// Config holds the orchestrator's politeness and budget knobs.
type Config struct {
	// PageDelay is the minimum pause between listing pages.
	PageDelay time.Duration
	// ItemDelay is the minimum pause between item detail fetches.
	ItemDelay time.Duration
	// ExtractDelay is the minimum pause after a completed extraction call.
	ExtractDelay time.Duration
	// MaxPagesPerRun bounds one run; the cursor resumes past it.
	MaxPagesPerRun int
}

// Orchestrator drives an end-to-end ingestion run: it paginates,
// rate-limits, isolates per-item failures and exposes a resumable cursor.
type Orchestrator struct {
	fetcher   Fetcher
	extractor TextExtractor
	dedup     Deduplicator
	resolver  EntityResolver
	store     VacancyWriter
	search    SearchSink
	cursors   CursorStore
	cleaner   *cleaner.Cleaner
	cfg       Config
	logger    *zap.Logger
}

// New creates an orchestrator. search and cursors may be nil.
func New(
	fetcher Fetcher,
	extractor TextExtractor,
	dd Deduplicator,
	resolver EntityResolver,
	store VacancyWriter,
	search SearchSink,
	cursors CursorStore,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxPagesPerRun <= 0 {
		cfg.MaxPagesPerRun = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		dedup:     dd,
		resolver:  resolver,
		store:     store,
		search:    search,
		cursors:   cursors,
		cleaner:   cleaner.NewCleaner(),
		cfg:       cfg,
		logger:    logger,
	}
}

// run carries the state of one in-flight ingestion run. The fetch session
// lives here and nowhere else; it dies with the run.
type run struct {
	o       *Orchestrator
	src     *domain.Source
	parser  parse.ListParser
	session *fetch.Session
	summary *domain.RunSummary
	fresh   []*domain.Vacancy
	logger  *zap.Logger
}

// Run executes one ingestion run for the source identified by slug. The
// summary is always returned, even on partial failure; only startup errors
// (unknown source) are run-fatal.
func (o *Orchestrator) Run(ctx context.Context, sourceSlug string) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		Source:    sourceSlug,
		StartedAt: time.Now(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	src, err := o.store.ResolveSource(ctx, sourceSlug)
	if err != nil {
		return summary, fmt.Errorf("resolve source %q: %w", sourceSlug, err)
	}

	r := &run{
		o:       o,
		src:     src,
		parser:  listParserFor(src),
		session: fetch.NewSession(),
		summary: summary,
		logger:  o.logger.With(zap.String("source", src.Slug), zap.String("run_id", summary.RunID)),
	}

	summary.Success = true
	r.paginate(ctx)

	if o.search != nil && len(r.fresh) > 0 {
		if err := o.search.BulkIndex(ctx, r.fresh); err != nil {
			r.logger.Warn("search indexing failed", zap.Error(err))
		}
	}

	r.logger.Info("run finished",
		zap.Int("pages", summary.PagesProcessed),
		zap.Int("found", summary.TotalFound),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("resume_page", summary.ResumePage))

	return summary, nil
}

func (r *run) paginate(ctx context.Context) {
	page, totalPages := r.startPoint(ctx)
	pagesThisRun := 0

	for {
		if ctx.Err() != nil {
			r.suspend(ctx, page, totalPages)
			return
		}

		body, session, err := r.o.fetcher.Fetch(ctx, listPageURL(r.src, page), r.session)
		if err != nil {
			r.summary.Errors = append(r.summary.Errors, domain.ItemError{
				Message: fmt.Sprintf("page %d: %v", page, err),
			})
			r.logger.Warn("listing page fetch failed", zap.Int("page", page), zap.Error(err))
			r.suspend(ctx, page, totalPages)
			return
		}
		r.session = session

		result := r.parser.ParseList(body, page)
		if result.TotalPages > 0 {
			totalPages = result.TotalPages
		}

		r.summary.PagesProcessed++
		pagesThisRun++
		r.summary.TotalFound += len(result.Candidates)

		for _, cand := range result.Candidates {
			if ctx.Err() != nil {
				r.suspend(ctx, page, totalPages)
				return
			}
			r.summary.Processed++
			if err := r.processItem(ctx, cand); err != nil {
				r.summary.Failed++
				r.summary.Errors = append(r.summary.Errors, domain.ItemError{
					ExternalID: cand.ExternalID,
					Title:      cand.Title,
					Message:    err.Error(),
				})
				r.logger.Warn("item failed",
					zap.String("external_id", cand.ExternalID),
					zap.String("title", cand.Title),
					zap.Error(err))
			}
			sleepJitter(ctx, r.o.cfg.ItemDelay)
		}

		r.logger.Info("page processed",
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("candidates", len(result.Candidates)))

		if page >= totalPages {
			r.complete(ctx)
			return
		}
		if pagesThisRun >= r.o.cfg.MaxPagesPerRun {
			r.suspend(ctx, page+1, totalPages)
			return
		}

		page++
		sleepJitter(ctx, r.o.cfg.PageDelay)
	}
}

// startPoint loads the resume cursor, falling back to page 1.
func (r *run) startPoint(ctx context.Context) (page, totalPages int) {
	page, totalPages = 1, 1
	if r.o.cursors == nil {
		return page, totalPages
	}
	cursor, err := r.o.cursors.Load(ctx, r.src.Slug)
	if err != nil {
		r.logger.Warn("cursor load failed, starting at page 1", zap.Error(err))
		return page, totalPages
	}
	if cursor != nil && cursor.NextPage > 1 {
		page = cursor.NextPage
		if cursor.TotalPages > 0 {
			totalPages = cursor.TotalPages
		}
		r.logger.Info("resuming from cursor", zap.Int("page", page))
	}
	return page, totalPages
}

// suspend persists the next page to resume from.
func (r *run) suspend(ctx context.Context, nextPage, totalPages int) {
	r.summary.ResumePage = nextPage
	if r.o.cursors == nil {
		return
	}
	// Persist even when the run context was cancelled.
	saveCtx := ctx
	if saveCtx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	cursor := &domain.RunCursor{NextPage: nextPage, TotalPages: totalPages}
	if err := r.o.cursors.Save(saveCtx, r.src.Slug, cursor); err != nil {
		r.logger.Warn("cursor save failed", zap.Error(err))
	}
}

// complete clears any resume state; the source was fully paged.
func (r *run) complete(ctx context.Context) {
	r.summary.ResumePage = 0
	if r.o.cursors == nil {
		return
	}
	if err := r.o.cursors.Clear(ctx, r.src.Slug); err != nil {
		r.logger.Warn("cursor clear failed", zap.Error(err))
	}
}

// processItem handles one candidate in isolation: its failure increments
// the error counter and nothing else.
func (r *run) processItem(ctx context.Context, cand parse.Candidate) error {
	if cand.ExternalID == "" {
		cand.ExternalID = cand.URL
	}
	if cand.ExternalID == "" {
		return fmt.Errorf("candidate without external id or url")
	}

	// Dedup before any expensive detail fetch or extraction call.
	known, err := r.o.dedup.Exists(ctx, r.src.Slug, r.src.ID, cand.ExternalID)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if known {
		r.summary.Skipped++
		return nil
	}

	detail := parse.DetailResult{Reason: "no detail page"}
	if cand.DetailURL != "" {
		body, session, err := r.o.fetcher.Fetch(ctx, cand.DetailURL, r.session)
		if err != nil {
			return fmt.Errorf("detail fetch: %w", err)
		}
		r.session = session
		detail = parse.ParseDetail(body)
	}

	sanitized := r.o.cleaner.Clean(cand.Description)
	plain := r.o.cleaner.CleanToText(cand.Description)

	ai := r.o.extractor.Extract(ctx, plain)
	if ai.FromModel {
		sleepJitter(ctx, r.o.cfg.ExtractDelay)
	}

	var companyID int64
	if obs := companyObservation(cand, detail, ai); obs.Name != "" {
		company, err := r.o.resolver.ResolveCompany(ctx, obs)
		if err != nil {
			return fmt.Errorf("resolve company: %w", err)
		}
		companyID = company.ID
		if company.Created {
			r.summary.CompaniesCreated++
		}
		if company.Updated {
			r.summary.CompaniesUpdated++
		}

		contact, err := r.o.resolver.ResolveContact(ctx, companyID, contactObservation(ai))
		if err != nil {
			return fmt.Errorf("resolve contact: %w", err)
		}
		if contact != nil && contact.Created {
			r.summary.ContactsCreated++
		}
	}

	v := composeVacancy(r.src, cand, detail, ai, sanitized, plain)
	v.CompanyID = companyID

	inserted, err := r.o.store.InsertVacancy(ctx, v)
	if err != nil {
		return fmt.Errorf("insert vacancy: %w", err)
	}
	if !inserted {
		// Another run won the unique-index race; not an error.
		r.summary.Skipped++
		return nil
	}

	r.summary.Inserted++
	r.fresh = append(r.fresh, v)

	if err := r.o.dedup.MarkSeen(ctx, r.src.Slug, cand.ExternalID); err != nil {
		r.logger.Warn("mark seen failed", zap.String("external_id", cand.ExternalID), zap.Error(err))
	}

	return nil
}

// listParserFor selects the parsing strategy configured on the source.
func listParserFor(src *domain.Source) parse.ListParser {
	switch src.Strategy {
	case domain.StrategyDocumentLinks:
		return parse.NewDocumentLinkList(originOf(src.ListURL))
	default:
		return parse.NewEmbeddedJSONList("", src.PerPage)
	}
}

func originOf(listURL string) string {
	u, err := url.Parse(listURL)
	if err != nil || u.Scheme == "" {
		return listURL
	}
	return u.Scheme + "://" + u.Host
}

func listPageURL(src *domain.Source, page int) string {
	sep := "?"
	if strings.Contains(src.ListURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", src.ListURL, sep, page)
}

// sleepJitter pauses for the base delay plus up to 500ms of jitter, to stay
// a polite client. A zero delay skips sleeping entirely.
func sleepJitter(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	d += time.Duration(rand.Intn(500)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
