package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/docai"
	"github.com/tensorlakeai/mother-duck/internal/ingest"
	"github.com/tensorlakeai/mother-duck/internal/pipeline"
	repo "github.com/tensorlakeai/mother-duck/internal/repository"
)

// Filings ingested when no URL is given on the command line.
var sampleFilings = []string{
	"https://investors.confluent.io/static-files/95299e90-a988-42c5-b9b5-7da387691f6a",
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		workers    = flag.Int("workers", -1, "concurrent documents (0 = unbounded, default from PIPELINE_WORKERS)")
		recordMode = flag.String("records", "", "records kept per document: single or multi (default from EXTRACT_RECORD_MODE)")
		listFile   = flag.String("list", "", "file with one filing URL per line (- for stdin)")
		docTimeout = flag.Duration("doc-timeout", 0, "bound extract+persist per document (0 = none)")
	)
	flag.Usage = func() {
		printError("usage: sec-ingest [flags] [url ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	if *workers >= 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *recordMode != "" {
		cfg.Pipeline.RecordMode = *recordMode
	}
	if *inmem {
		cfg.Database.Driver = common.DriverSQLite
	}
	if err := validate(cfg, *inmem); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	var urls []string
	if *listFile != "" {
		listed, stats, err := ingest.LoadURLs(*listFile)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(2)
		}
		logger.Info("url list loaded", "path", *listFile, "scanned", stats.Scanned, "matched", stats.Matched, "deduplicated", stats.Deduplicated)
		urls = listed
	}
	urls = ingest.MergeURLs(urls, flag.Args()...)
	if len(urls) == 0 {
		urls = sampleFilings
	}

	dbResult, err := repo.InitDatabase(ctx, cfg, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()

	client := docai.NewClient(docai.Config{
		APIKey:       cfg.DocAI.APIKey,
		BaseURL:      cfg.DocAI.BaseURL,
		Timeout:      cfg.DocAI.Timeout,
		PollInterval: cfg.DocAI.PollInterval,
		WaitTimeout:  cfg.DocAI.WaitTimeout,
	}, logger)

	extractor, err := pipeline.NewExtractor(client, cfg.Pipeline.RecordMode, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}
	processor := pipeline.NewProcessor(
		logger,
		dbResult.DB,
		repo.NewFilingRepository(dbResult.DB, logger),
		pipeline.NewClassifier(client, logger),
		extractor,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithDocumentTimeout(*docTimeout),
	)

	res, runErr := processor.Run(ctx, urls)
	if res != nil {
		printSummary(os.Stdout, res)
	}
	if runErr != nil {
		logger.Error("ingestion aborted", "error", runErr)
		os.Exit(1)
	}
}

// validate checks everything except the database when it is in-memory.
func validate(cfg *common.Config, inmem bool) error {
	if !inmem {
		return cfg.Validate()
	}
	checked := *cfg
	checked.Database.DSN = ":memory:"
	return checked.Validate()
}

// newLogger writes JSON logs to w; stdout is reserved for the run summary.
func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func printSummary(w io.Writer, res *pipeline.Result) {
	s := res.Stats
	fmt.Fprintf(w, "Ingestion complete (run %s)\n", res.RunID)
	fmt.Fprintf(w, "- Documents submitted: %d\n", s.Submitted)
	fmt.Fprintf(w, "- Classified: %d (failed %d)\n", s.Classified, s.ClassifyFailed)
	fmt.Fprintf(w, "- Without risk factor pages: %d\n", s.NoPages)
	fmt.Fprintf(w, "- Extracted without records: %d\n", s.NoRecords)
	fmt.Fprintf(w, "- Persisted: %d (failed %d)\n", s.Persisted, s.Failed)
	fmt.Fprintf(w, "- Records written: %d\n", s.RecordsWritten)
	fmt.Fprintf(w, "- Mentions written: %d\n", s.MentionsWritten)
	for _, o := range res.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "  ! %s: %s: %v\n", o.URL, o.Status, o.Err)
		}
	}
}
