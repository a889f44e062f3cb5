package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenInMemory(ctx, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, quietLogger()) })
	require.NoError(t, EnsureTables(ctx, db, quietLogger()))
	return db
}

func strPtr(s string) *string { return &s }

func threeMentionRecord() entity.FilingRecord {
	return entity.FilingRecord{
		CompanyName:     "Acme Corp",
		Ticker:          "ACME",
		FilingType:      "10-Q",
		FilingDate:      "2025-08-01",
		FiscalYear:      "2025",
		FiscalQuarter:   strPtr("Q2"),
		AIRiskMentioned: true,
		AIRiskMentions: []entity.RiskMention{
			{RiskCategory: "Operational", RiskDescription: "Model outages", Citation: "p.4"},
			{RiskCategory: "regulatory", RiskDescription: "EU AI Act", SeverityIndicator: strPtr("High"), Citation: "p.5"},
			{RiskCategory: "Security", RiskDescription: "Prompt injection", Citation: "p.5"},
		},
		NumAIRiskMentions: 3,
		RegulatoryAIRisk:  true,
	}
}

type mentionRow struct {
	filingID, company, ticker, year, source, category string
	quarter, severity                                 *string
}

func loadMentions(t *testing.T, db *DB) []mentionRow {
	t.Helper()
	rows, err := db.QueryContext(context.Background(),
		`SELECT filing_id, company_name, ticker, fiscal_year, fiscal_quarter, source_file, risk_category, severity_indicator
		 FROM ai_risk_mentions ORDER BY citation, risk_description`)
	require.NoError(t, err)
	defer rows.Close()

	var out []mentionRow
	for rows.Next() {
		var m mentionRow
		require.NoError(t, rows.Scan(&m.filingID, &m.company, &m.ticker, &m.year, &m.quarter, &m.source, &m.category, &m.severity))
		out = append(out, m)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestEnsureTablesIsIdempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger())

	_, err := repo.Insert(ctx, threeMentionRecord(), "https://example.com/q2.pdf")
	require.NoError(t, err)

	require.NoError(t, EnsureTables(ctx, db, quietLogger()))
	require.NoError(t, EnsureTables(ctx, db, quietLogger()))

	filings, mentions, err := TableCounts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), filings)
	assert.Equal(t, int64(3), mentions)
}

func TestInsertThreeMentions(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger())

	stored, err := repo.Insert(ctx, threeMentionRecord(), "https://example.com/filings/acme-q2.pdf?dl=1")
	require.NoError(t, err)
	assert.Equal(t, "acme-q2.pdf", stored.SourceFile)

	filings, mentions, err := TableCounts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), filings)
	assert.Equal(t, int64(3), mentions)

	rows := loadMentions(t, db)
	require.Len(t, rows, 3)
	for _, m := range rows {
		assert.Equal(t, stored.ID.String(), m.filingID)
		assert.Equal(t, "Acme Corp", m.company)
		assert.Equal(t, "ACME", m.ticker)
		assert.Equal(t, "2025", m.year)
		require.NotNil(t, m.quarter)
		assert.Equal(t, "Q2", *m.quarter)
		assert.Equal(t, "acme-q2.pdf", m.source)
	}
	assert.Equal(t, "Regulatory", rows[1].category)
	require.NotNil(t, rows[1].severity)
	assert.Equal(t, "High", *rows[1].severity)
	assert.Nil(t, rows[0].severity)
}

func TestInsertLogsRunContext(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	repo := NewFilingRepository(db, slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := common.WithRunID(context.Background(), "run-42")
	ctx = common.WithDocumentURL(ctx, "https://example.com/acme.pdf")
	_, err := repo.Insert(ctx, threeMentionRecord(), "https://example.com/acme.pdf")
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "filing inserted", entry["msg"])
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "https://example.com/acme.pdf", entry["document_url"])
}

func TestInsertWithoutMentions(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger())

	rec := threeMentionRecord()
	rec.AIRiskMentions = nil
	rec.FiscalQuarter = nil
	rec.AIRiskMentioned = false

	_, err := repo.Insert(ctx, rec, "https://example.com/annual.pdf")
	require.NoError(t, err)

	filings, mentions, err := TableCounts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), filings)
	assert.Equal(t, int64(0), mentions)

	got, err := repo.ListBySourceFile(ctx, "annual.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Record.FiscalQuarter)
	assert.Empty(t, got[0].Record.AIRiskMentions)
	assert.Equal(t, 0, got[0].Record.NumAIRiskMentions)
}

func TestListBySourceFileRoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger()).(*filingRepo)
	fixed := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	rec := threeMentionRecord()
	rec.NumAIRiskMentions = 7

	stored, err := repo.Insert(ctx, rec, "https://example.com/acme.pdf")
	require.NoError(t, err)

	got, err := repo.ListBySourceFile(ctx, "acme.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	f := got[0]
	assert.Equal(t, stored.ID, f.ID)
	assert.Equal(t, "acme.pdf", f.SourceFile)
	assert.True(t, fixed.Equal(f.IngestedAt), "ingested_at = %v", f.IngestedAt)
	assert.Equal(t, "Acme Corp", f.Record.CompanyName)
	assert.True(t, f.Record.RegulatoryAIRisk)
	assert.False(t, f.Record.AIInvestmentMentioned)
	assert.Equal(t, 3, f.Record.NumAIRiskMentions, "count is normalized to the mention list")
	require.Len(t, f.Record.AIRiskMentions, 3)
	assert.Equal(t, "Regulatory", f.Record.AIRiskMentions[1].RiskCategory)

	none, err := repo.ListBySourceFile(ctx, "other.pdf")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertAppendsDuplicates(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger())

	for i := 0; i < 2; i++ {
		_, err := repo.Insert(ctx, threeMentionRecord(), "https://example.com/acme.pdf")
		require.NoError(t, err)
	}
	filings, mentions, err := TableCounts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), filings)
	assert.Equal(t, int64(6), mentions)
}

func TestInsertRejectsMalformedRecord(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewFilingRepository(db, quietLogger())

	rec := threeMentionRecord()
	rec.Ticker = strings.Repeat("X", 11)

	_, err := repo.Insert(ctx, rec, "https://example.com/acme.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedRecord))

	filings, mentions, err := TableCounts(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, filings)
	assert.Zero(t, mentions)
}

func TestInsertWithoutTablesFails(t *testing.T) {
	ctx := context.Background()
	db, err := OpenInMemory(ctx, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, quietLogger()) })

	_, err = NewFilingRepository(db, quietLogger()).Insert(ctx, threeMentionRecord(), "https://example.com/a.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDatabase))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, quietLogger())
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = OpenSQLite(context.Background(), "", quietLogger())
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestHealthCheck(t *testing.T) {
	db := setupDB(t)
	assert.NoError(t, HealthCheck(context.Background(), db, time.Second, quietLogger()))
}

func TestConfigFrom(t *testing.T) {
	c := ConfigFrom(common.DatabaseConfig{Driver: common.DriverSQLite, DSN: "file:x.db", MaxConns: 3})
	assert.Equal(t, common.DriverSQLite, c.Driver)
	assert.Equal(t, "file:x.db", c.DSN)
	assert.Equal(t, int32(3), c.MaxConns)
}
