package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID       contextKey = "run_id"
	ContextKeyDocumentURL contextKey = "document_url"
)

// WithRunID adds an ingestion run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithDocumentURL adds the document being processed to the context
func WithDocumentURL(ctx context.Context, documentURL string) context.Context {
	return context.WithValue(ctx, ContextKeyDocumentURL, documentURL)
}

// DocumentURLFromContext extracts the document URL from context
func DocumentURLFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(ContextKeyDocumentURL).(string); ok {
		return u
	}
	return ""
}

// LogAttrs returns the run ID and document URL carried by ctx as slog
// key/value pairs, omitting unset values.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if runID := RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if u := DocumentURLFromContext(ctx); u != "" {
		attrs = append(attrs, "document_url", u)
	}
	return attrs
}
