package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/entity"
	"github.com/tensorlakeai/mother-duck/internal/repository"
)

// OutcomeStatus is the final state of one submitted document.
type OutcomeStatus string

const (
	StatusClassifyFailed OutcomeStatus = "classify_failed"
	StatusNoPages        OutcomeStatus = "no_pages"
	StatusNoRecords      OutcomeStatus = "no_records"
	StatusFailed         OutcomeStatus = "failed"
	StatusPersisted      OutcomeStatus = "persisted"
)

// DocumentOutcome reports what happened to one input URL.
type DocumentOutcome struct {
	URL        string
	SourceFile string
	ParseID    string
	Status     OutcomeStatus
	FilingIDs  []uuid.UUID
	Records    int
	Mentions   int
	Err        error
}

type Stats struct {
	Submitted       int
	Classified      int
	ClassifyFailed  int
	NoPages         int
	NoRecords       int
	Extracted       int
	Persisted       int
	Failed          int
	RecordsWritten  int
	MentionsWritten int
}

// Result is the outcome of one ingestion run; Outcomes follows input order.
type Result struct {
	RunID    string
	Outcomes []DocumentOutcome
	Stats    Stats
	Elapsed  time.Duration
}

type Option func(*Processor)

// WithWorkers bounds concurrent extractions. n <= 0 means unbounded.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithDocumentTimeout bounds extract+persist for a single document.
func WithDocumentTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.docTimeout = d
		}
	}
}

// Processor drives classify, extract and persist over a batch of filings.
type Processor struct {
	logger     *slog.Logger
	db         *repository.DB
	filings    repository.FilingRepository
	classifier *Classifier
	extractor  *Extractor
	workers    int
	docTimeout time.Duration
}

func NewProcessor(
	logger *slog.Logger,
	db *repository.DB,
	filings repository.FilingRepository,
	classifier *Classifier,
	extractor *Extractor,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:     logger,
		db:         db,
		filings:    filings,
		classifier: classifier,
		extractor:  extractor,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run ingests urls. Tables are ensured first. Classification runs in input
// order; extraction and persistence fan out per document. A document failure
// is recorded on its outcome and never stops its siblings. The returned error
// is non-nil only when the batch as a whole could not proceed.
func (p *Processor) Run(ctx context.Context, urls []string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	log := p.logger.With("run_id", runID)

	res := &Result{RunID: runID, Outcomes: make([]DocumentOutcome, len(urls))}
	for i, u := range urls {
		res.Outcomes[i] = DocumentOutcome{URL: u, SourceFile: entity.SourceFileFromURL(u)}
	}

	if err := repository.EnsureTables(ctx, p.db, log); err != nil {
		return res, err
	}

	log.Info("ingest start", "documents", len(urls), "workers", p.workers)

	var classified []int
	for i := range res.Outcomes {
		out := &res.Outcomes[i]
		if err := ctx.Err(); err != nil {
			return p.finish(res, start), err
		}
		parseID, err := p.classifier.Classify(ctx, out.URL)
		if err != nil {
			out.Status = StatusClassifyFailed
			out.Err = err
			if common.IsFatal(err) {
				log.Error("ingest aborted", "url", out.URL, "err", err)
				return p.finish(res, start), err
			}
			continue
		}
		out.ParseID = parseID
		classified = append(classified, i)
	}

	var g errgroup.Group
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for _, i := range classified {
		out := &res.Outcomes[i]
		g.Go(func() error {
			p.processDocument(ctx, log, out)
			return nil
		})
	}
	_ = g.Wait()

	p.finish(res, start)
	log.Info("ingest done",
		"submitted", res.Stats.Submitted,
		"classified", res.Stats.Classified,
		"persisted", res.Stats.Persisted,
		"failed", res.Stats.Failed,
		"records", res.Stats.RecordsWritten,
		"mentions", res.Stats.MentionsWritten,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	for _, o := range res.Outcomes {
		if o.Err != nil && common.IsFatal(o.Err) {
			return res, o.Err
		}
	}
	return res, nil
}

// processDocument owns out exclusively for the duration of the call.
func (p *Processor) processDocument(ctx context.Context, log *slog.Logger, out *DocumentOutcome) {
	ctx = common.WithDocumentURL(ctx, out.URL)
	if p.docTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.docTimeout)
		defer cancel()
	}
	log = log.With("url", out.URL, "parse_id", out.ParseID)

	records, err := p.extractor.Extract(ctx, out.URL, out.ParseID)
	if errors.Is(err, common.ErrNoMatchingPages) {
		out.Status = StatusNoPages
		return
	}
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		log.Error("extract failed", "err", err)
		return
	}
	if len(records) == 0 {
		out.Status = StatusNoRecords
		log.Warn("extraction returned no records")
		return
	}
	out.Records = len(records)

	for _, rec := range records {
		stored, err := p.filings.Insert(ctx, rec, out.URL)
		if err != nil {
			out.Status = StatusFailed
			out.Err = err
			log.Error("persist failed", "company", rec.CompanyName, "err", err)
			return
		}
		out.FilingIDs = append(out.FilingIDs, stored.ID)
		out.Mentions += len(stored.Record.AIRiskMentions)
	}
	out.Status = StatusPersisted
	log.Info("document persisted", "records", len(out.FilingIDs), "mentions", out.Mentions)
}

func (p *Processor) finish(res *Result, start time.Time) *Result {
	var s Stats
	s.Submitted = len(res.Outcomes)
	for _, o := range res.Outcomes {
		if o.ParseID != "" {
			s.Classified++
		}
		switch o.Status {
		case StatusClassifyFailed:
			s.ClassifyFailed++
		case StatusNoPages:
			s.NoPages++
		case StatusNoRecords:
			s.NoRecords++
		case StatusFailed:
			s.Failed++
		case StatusPersisted:
			s.Persisted++
		}
		if o.Records > 0 {
			s.Extracted++
		}
		s.RecordsWritten += len(o.FilingIDs)
		s.MentionsWritten += o.Mentions
	}
	res.Stats = s
	res.Elapsed = time.Since(start)
	return res
}

// Errors returns the per-document errors of a run, in input order.
func (r *Result) Errors() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}
