package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorlakeai/mother-duck/internal/pipeline"
)

func TestLogsStayOffSummaryStream(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := newLogger(&stderr)
	logger.Info("ingestion started", "documents", 2)

	printSummary(&stdout, &pipeline.Result{
		RunID: "run-1",
		Outcomes: []pipeline.DocumentOutcome{
			{URL: "https://example.com/a.pdf", Status: pipeline.StatusPersisted},
			{URL: "https://example.com/b.pdf", Status: pipeline.StatusFailed, Err: errors.New("boom")},
		},
		Stats: pipeline.Stats{Submitted: 2, Classified: 2, Persisted: 1, Failed: 1},
	})

	assert.Contains(t, stderr.String(), `"msg":"ingestion started"`)
	assert.NotContains(t, stdout.String(), `"msg"`)
	assert.Contains(t, stdout.String(), "Ingestion complete (run run-1)")
	assert.Contains(t, stdout.String(), "- Persisted: 1 (failed 1)")
	assert.Contains(t, stdout.String(), "  ! https://example.com/b.pdf: failed: boom")
}
