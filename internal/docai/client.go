package docai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tensorlakeai/mother-duck/constants"
	"github.com/tensorlakeai/mother-duck/internal/common"
)

// HTTPClient talks to the Tensorlake DocumentAI v2 REST API.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewClient(cfg Config, logger *slog.Logger) *HTTPClient {
	cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClient{cfg: cfg, httpClient: hc, log: logger}
}

type parseIDResponse struct {
	ParseID string `json:"parse_id"`
}

// Classify implements Client.
func (c *HTTPClient) Classify(ctx context.Context, fileURL string, classes []PageClassConfig) (string, error) {
	if strings.TrimSpace(fileURL) == "" {
		return "", fmt.Errorf("%w: file url is required", common.ErrRequestRejected)
	}
	body := map[string]any{
		"file_url":             fileURL,
		"page_classifications": classes,
	}
	parseID, err := c.submit(ctx, "classify", body)
	if err != nil {
		return "", err
	}
	c.log.Info("docai.classify.submitted", "url", fileURL, "parse_id", parseID, "classes", len(classes))
	return parseID, nil
}

// Extract implements Client.
func (c *HTTPClient) Extract(ctx context.Context, fileURL, pageRange string, opts []StructuredExtractionOptions) (string, error) {
	if strings.TrimSpace(fileURL) == "" {
		return "", fmt.Errorf("%w: file url is required", common.ErrRequestRejected)
	}
	body := map[string]any{
		"file_url":                      fileURL,
		"structured_extraction_options": opts,
	}
	if pageRange != "" {
		body["page_range"] = pageRange
	}
	parseID, err := c.submit(ctx, "extract", body)
	if err != nil {
		return "", err
	}
	c.log.Info("docai.extract.submitted", "url", fileURL, "parse_id", parseID, "page_range", pageRange)
	return parseID, nil
}

func (c *HTTPClient) submit(ctx context.Context, op string, body map[string]any) (string, error) {
	raw, err := sendJSON(ctx, c.httpClient, http.MethodPost, c.endpoint(op), c.cfg.APIKey, body, c.log)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var out parseIDResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if out.ParseID == "" {
		return "", fmt.Errorf("%s: %w: response has no parse_id", op, common.ErrServiceUnavailable)
	}
	return out.ParseID, nil
}

// GetParseResult fetches the current state of a parse job without waiting.
func (c *HTTPClient) GetParseResult(ctx context.Context, parseID string) (*ParseResult, error) {
	if parseID == "" {
		return nil, fmt.Errorf("%w: parse id is required", common.ErrRequestRejected)
	}
	raw, err := sendJSON(ctx, c.httpClient, http.MethodGet, c.endpoint("parse/"+url.PathEscape(parseID)), c.cfg.APIKey, nil, c.log)
	if err != nil {
		return nil, fmt.Errorf("get parse %s: %w", parseID, err)
	}
	var res ParseResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("get parse %s: decode response: %w", parseID, err)
	}
	if res.ParseID == "" {
		res.ParseID = parseID
	}
	return &res, nil
}

// WaitForCompletion polls the parse job while it is pending or processing.
// A failed job, or one reporting any status it does not recognise, returns
// ErrJobFailed together with the last result. When WaitTimeout is set an
// expired wait also reports ErrJobFailed.
func (c *HTTPClient) WaitForCompletion(ctx context.Context, parseID string) (*ParseResult, error) {
	log := c.log.With(common.LogAttrs(ctx)...)
	start := time.Now()
	if c.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		res, err := c.GetParseResult(ctx, parseID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && c.cfg.WaitTimeout > 0 {
				return nil, fmt.Errorf("%w: parse %s not finished after %s", common.ErrJobFailed, parseID, c.cfg.WaitTimeout)
			}
			return nil, err
		}

		switch res.Status {
		case constants.ParseStatusSuccessful:
			log.Info("docai.wait.done",
				"parse_id", parseID,
				"polls", polls,
				"page_classes", len(res.PageClasses),
				"structured_data", len(res.StructuredData),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, nil
		case constants.ParseStatusFailure:
			log.Error("docai.wait.failed",
				"parse_id", parseID,
				"error", res.Error,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, fmt.Errorf("%w: parse %s: %s", common.ErrJobFailed, parseID, res.Error)
		}
		if !res.Status.InProgress() {
			log.Error("docai.wait.unknown_status",
				"parse_id", parseID,
				"status", res.Status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, fmt.Errorf("%w: parse %s: unrecognised status %q", common.ErrJobFailed, parseID, res.Status)
		}

		log.Debug("docai.wait.pending", "parse_id", parseID, "status", res.Status, "polls", polls)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && c.cfg.WaitTimeout > 0 {
				return nil, fmt.Errorf("%w: parse %s not finished after %s", common.ErrJobFailed, parseID, c.cfg.WaitTimeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *HTTPClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}
