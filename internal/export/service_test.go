package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tensorlakeai/mother-duck/internal/entity"
	"github.com/tensorlakeai/mother-duck/internal/queries"
	"github.com/tensorlakeai/mother-duck/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (*Service, repository.FilingRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenInMemory(ctx, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, quietLogger()) })
	require.NoError(t, repository.EnsureTables(ctx, db, quietLogger()))
	return NewService(queries.NewRunner(db, quietLogger()), quietLogger()),
		repository.NewFilingRepository(db, quietLogger())
}

func TestExportAllQueries(t *testing.T) {
	svc, repo := newService(t)
	_, err := repo.Insert(context.Background(), entity.FilingRecord{
		CompanyName:     "Acme Corp",
		Ticker:          "ACME",
		FilingType:      "10-Q",
		FilingDate:      "2025-05-01",
		FiscalYear:      "2025",
		AIRiskMentioned: true,
		AIRiskMentions: []entity.RiskMention{
			{RiskCategory: "Operational", RiskDescription: "Model outages", Citation: "p.4"},
		},
		NumAIRiskMentions: 1,
	}, "https://example.com/filing.pdf")
	require.NoError(t, err)

	b, err := svc.ExportXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	want := make([]string, 0, len(queries.Names()))
	for _, n := range queries.Names() {
		want = append(want, string(n))
	}
	assert.Equal(t, want, f.GetSheetList())

	rows, err := f.GetRows(string(queries.RiskDistribution))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"RISK_CATEGORY", "TOTAL_MENTIONS", "COMPANIES_MENTIONING"}, rows[0])
	assert.Equal(t, []string{"Operational", "1", "1"}, rows[1])

	rows, err = f.GetRows(string(queries.CompanySummary))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme Corp", rows[1][0])
	assert.Equal(t, "1", rows[1][2])
}

func TestExportSelectedQueryOnEmptyTables(t *testing.T) {
	svc, _ := newService(t)
	b, err := svc.ExportXLSX(context.Background(), queries.OperationalRisks)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{string(queries.OperationalRisks)}, f.GetSheetList())
	rows, err := f.GetRows(string(queries.OperationalRisks))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "COMPANY_NAME", rows[0][0])
}

func TestExportUnknownQuery(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ExportXLSX(context.Background(), queries.Name("nope"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	long := strings.Repeat("x", maxCellChars+10)
	assert.LessOrEqual(t, len([]rune(cellValue(long).(string))), maxCellChars)

	cut := truncate("héllo wörld", 5)
	assert.Equal(t, "héll…", cut)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "日本語", truncate("日本語", 3))
	assert.Equal(t, "日", truncate("日本語", 1))

	wide := strings.Repeat("é", maxCellChars+10)
	got := cellValue(wide).(string)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxCellChars, utf8.RuneCountInString(got))
}
