package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tensorlakeai/mother-duck/constants"
	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/docai"
	"github.com/tensorlakeai/mother-duck/internal/entity"
)

// Extractor turns a finished classification into structured filing records.
type Extractor struct {
	logger  *slog.Logger
	client  docai.Client
	decoder *docai.RecordDecoder
	options []docai.StructuredExtractionOptions
	mode    string
}

func NewExtractor(client docai.Client, recordMode string, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch recordMode {
	case "":
		recordMode = common.RecordModeSingle
	case common.RecordModeSingle, common.RecordModeMulti:
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown record mode %q", recordMode), common.ErrInvalidInput)
	}

	schema := docai.BuildFilingJSONSchema()
	decoder, err := docai.NewRecordDecoder(constants.FilingSchemaName, schema)
	if err != nil {
		return nil, fmt.Errorf("compile filing schema: %w", err)
	}
	return &Extractor{
		logger:  logger,
		client:  client,
		decoder: decoder.WithLogger(logger),
		options: []docai.StructuredExtractionOptions{{
			SchemaName: constants.FilingSchemaName,
			JSONSchema: schema,
		}},
		mode: recordMode,
	}, nil
}

// Extract waits for the classification job parseID, then extracts records
// from the risk-factor pages of url. A classification without risk-factor
// pages returns an error wrapping common.ErrNoMatchingPages and no extraction
// is submitted.
func (e *Extractor) Extract(ctx context.Context, url, parseID string) ([]entity.FilingRecord, error) {
	classified, err := e.client.WaitForCompletion(ctx, parseID)
	if err != nil {
		return nil, fmt.Errorf("wait for classification: %w", err)
	}

	pages := classified.PagesFor(constants.RiskFactorsPageClass)
	if len(pages) == 0 {
		e.logger.Info("no risk factor pages", "url", url, "parse_id", parseID)
		return nil, fmt.Errorf("%w: %s", common.ErrNoMatchingPages, constants.RiskFactorsPageClass)
	}
	pageRange := joinPages(pages)
	e.logger.Info("risk factor pages found", "url", url, "parse_id", parseID, "pages", pageRange)

	extractID, err := e.client.Extract(ctx, url, pageRange, e.options)
	if err != nil {
		return nil, fmt.Errorf("submit extraction: %w", err)
	}
	extracted, err := e.client.WaitForCompletion(ctx, extractID)
	if err != nil {
		return nil, fmt.Errorf("wait for extraction: %w", err)
	}

	records, err := e.decoder.Decode(extracted)
	if err != nil {
		return nil, err
	}
	if e.mode == common.RecordModeSingle && len(records) > 1 {
		e.logger.Warn("extraction returned several records; keeping the first",
			"url", url, "parse_id", extractID, "records", len(records))
		records = records[:1]
	}
	return records, nil
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
