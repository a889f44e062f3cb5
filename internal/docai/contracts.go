package docai

import (
	"context"
	"encoding/json"

	"github.com/tensorlakeai/mother-duck/constants"
)

// PageClassConfig names one page class the classifier should label.
type PageClassConfig struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StructuredExtractionOptions requests one named JSON schema from extraction.
type StructuredExtractionOptions struct {
	SchemaName string         `json:"schema_name"`
	JSONSchema map[string]any `json:"json_schema"`
}

// PageClass is one labelled group of pages in a classification result.
type PageClass struct {
	PageClass   string `json:"page_class"`
	PageNumbers []int  `json:"page_numbers"`
}

// StructuredData is one schema-conformant payload from an extraction job.
// Data holds either a single object or an array of objects.
type StructuredData struct {
	SchemaName  string          `json:"schema_name,omitempty"`
	Data        json.RawMessage `json:"data"`
	PageNumbers json.RawMessage `json:"page_numbers,omitempty"`
}

// ParseResult is the state of a classification or extraction job.
type ParseResult struct {
	ParseID        string                `json:"parse_id"`
	Status         constants.ParseStatus `json:"status"`
	Error          string                `json:"error,omitempty"`
	PageClasses    []PageClass           `json:"page_classes,omitempty"`
	StructuredData []StructuredData      `json:"structured_data,omitempty"`
}

// PagesFor returns every page number labelled class, in reported order.
func (r *ParseResult) PagesFor(class string) []int {
	if r == nil {
		return nil
	}
	var pages []int
	for _, pc := range r.PageClasses {
		if pc.PageClass == class {
			pages = append(pages, pc.PageNumbers...)
		}
	}
	return pages
}

// Client is the narrow surface of the document-AI service the pipeline uses.
type Client interface {
	// Classify submits fileURL for page classification and returns the parse id.
	Classify(ctx context.Context, fileURL string, classes []PageClassConfig) (string, error)
	// Extract submits a structured extraction over pageRange ("4,5,9").
	Extract(ctx context.Context, fileURL, pageRange string, opts []StructuredExtractionOptions) (string, error)
	// WaitForCompletion blocks until the parse job is terminal.
	WaitForCompletion(ctx context.Context, parseID string) (*ParseResult, error)
}
