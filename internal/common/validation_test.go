package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorlakeai/mother-duck/internal/entity"
)

func validRecord() entity.FilingRecord {
	q := "Q2"
	return entity.FilingRecord{
		CompanyName:     "Acme Corp",
		Ticker:          "ACME",
		FilingType:      "10-Q",
		FilingDate:      "2025-08-01",
		FiscalYear:      "2025",
		FiscalQuarter:   &q,
		AIRiskMentioned: true,
		AIRiskMentions: []entity.RiskMention{
			{RiskCategory: "Operational", RiskDescription: "Model drift", Citation: "p.4"},
		},
		NumAIRiskMentions: 1,
	}
}

func TestValidateFilingRecordAccepts(t *testing.T) {
	assert.NoError(t, ValidateFilingRecord(validRecord()))

	rec := validRecord()
	rec.FiscalQuarter = nil
	rec.AIRiskMentions = nil
	assert.NoError(t, ValidateFilingRecord(rec))
}

func TestValidateFilingRecordRejects(t *testing.T) {
	rec := validRecord()
	rec.CompanyName = "  "
	rec.Ticker = "TOOLONGTICKER"
	rec.AIRiskMentions[0].RiskCategory = "Weather"

	err := ValidateFilingRecord(rec)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "MALFORMED_RECORD", appErr.Code)
	assert.Contains(t, appErr.Message, "company_name")
	assert.Contains(t, appErr.Message, "ticker")
	assert.Contains(t, appErr.Message, "ai_risk_mentions[0].risk_category")
}

func TestValidateFilingRecordUnboundedColumns(t *testing.T) {
	rec := validRecord()
	rec.FiscalYear = "FY2025"
	rec.FilingType = "Form 10-K Annual Report"
	rec.FilingDate = "for the fiscal year ended December 31, 2024"
	assert.NoError(t, ValidateFilingRecord(rec))

	quarter := strings.Repeat("Q", MaxFiscalQuarterLen+1)
	rec.FiscalQuarter = &quarter
	rec.AIRiskMentions[0].Citation = strings.Repeat("p", MaxCitationLen+1)
	err := ValidateFilingRecord(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fiscal_quarter")
	assert.Contains(t, err.Error(), "ai_risk_mentions[0].citation")
}

func TestValidatorCollectsErrors(t *testing.T) {
	sev := strings.Repeat("x", MaxSeverityLen+1)
	v := NewValidator().
		Field("a", "", Required).
		Field("b", &sev, MaxLength(MaxSeverityLen)).
		Field("c", "ok", Required)

	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.Contains(t, v.ErrorMessage(), "'a'")
	assert.Contains(t, v.ErrorMessage(), "at most 20 characters")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(WrapError(ErrUnauthorized, "classify")))
	assert.True(t, IsFatal(NewAppError("CONFIG_ERROR", "bad", ErrInvalidInput)))
	assert.False(t, IsFatal(WrapError(ErrServiceUnavailable, "classify")))
	assert.False(t, IsFatal(nil))
	assert.Nil(t, WrapError(nil, "noop"))
}
