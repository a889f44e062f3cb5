package queries

import (
	"fmt"
	"strings"

	"github.com/tensorlakeai/mother-duck/internal/common"
)

// Name selects one canned query. The set is closed; callers never supply SQL.
type Name string

const (
	RiskDistribution Name = "risk-distribution"
	OperationalRisks Name = "operational-risks"
	RiskEvolution    Name = "risk-evolution"
	RiskTimeline     Name = "risk-timeline"
	RiskProfiles     Name = "risk-profiles"
	CompanySummary   Name = "company-summary"

	Default = RiskDistribution
)

// ordered by CLI index
var allNames = []Name{
	RiskDistribution,
	OperationalRisks,
	RiskEvolution,
	RiskTimeline,
	RiskProfiles,
	CompanySummary,
}

var aliases = map[string]Name{
	"category-distribution": RiskDistribution,
	"default":               RiskDistribution,
}

var catalog = map[Name]string{
	RiskDistribution: `
		SELECT
			risk_category AS RISK_CATEGORY,
			COUNT(*) AS TOTAL_MENTIONS,
			COUNT(DISTINCT company_name) AS COMPANIES_MENTIONING
		FROM ai_risk_mentions
		WHERE risk_category IS NOT NULL
		GROUP BY risk_category
		ORDER BY TOTAL_MENTIONS DESC, RISK_CATEGORY`,

	OperationalRisks: `
		WITH ranked_risks AS (
			SELECT
				company_name,
				ticker,
				risk_description,
				citation,
				LENGTH(risk_description) AS description_length,
				ROW_NUMBER() OVER (
					PARTITION BY company_name
					ORDER BY LENGTH(risk_description) DESC, risk_description
				) AS rn
			FROM ai_risk_mentions
			WHERE risk_category = 'Operational'
		)
		SELECT
			company_name AS COMPANY_NAME,
			ticker AS TICKER,
			risk_description AS RISK_DESCRIPTION,
			citation AS CITATION,
			description_length AS DESCRIPTION_LENGTH
		FROM ranked_risks
		WHERE rn = 1
		ORDER BY COMPANY_NAME`,

	RiskEvolution: `
		SELECT
			company_name AS COMPANY_NAME,
			ticker AS TICKER,
			fiscal_year AS FISCAL_YEAR,
			fiscal_quarter AS FISCAL_QUARTER,
			risk_category AS RISK_CATEGORY,
			risk_description AS RISK_DESCRIPTION,
			citation AS CITATION
		FROM ai_risk_mentions
		WHERE fiscal_year = '2025'
		ORDER BY COMPANY_NAME, FISCAL_QUARTER`,

	RiskTimeline: `
		SELECT
			fiscal_year AS FISCAL_YEAR,
			fiscal_quarter AS FISCAL_QUARTER,
			COUNT(DISTINCT source_file) AS NUM_FILINGS,
			SUM(num_ai_risk_mentions) AS TOTAL_RISK_MENTIONS,
			CAST(AVG(num_ai_risk_mentions) AS DOUBLE PRECISION) AS AVG_RISK_MENTIONS_PER_FILING,
			SUM(CASE WHEN regulatory_ai_risk THEN 1 ELSE 0 END) AS FILINGS_WITH_REGULATORY_RISK
		FROM ai_risk_filings
		GROUP BY fiscal_year, fiscal_quarter
		ORDER BY FISCAL_YEAR, FISCAL_QUARTER`,

	RiskProfiles: `
		SELECT
			company_name AS COMPANY_NAME,
			ticker AS TICKER,
			risk_category AS RISK_CATEGORY,
			COUNT(*) AS FREQUENCY
		FROM ai_risk_mentions
		WHERE risk_category IS NOT NULL
		GROUP BY company_name, ticker, risk_category
		ORDER BY COMPANY_NAME, FREQUENCY DESC, RISK_CATEGORY`,

	CompanySummary: `
		SELECT
			company_name AS COMPANY_NAME,
			ticker AS TICKER,
			COUNT(*) AS TOTAL_FILINGS,
			CAST(AVG(num_ai_risk_mentions) AS DOUBLE PRECISION) AS AVG_RISK_MENTIONS,
			SUM(CASE WHEN regulatory_ai_risk THEN 1 ELSE 0 END) AS FILINGS_WITH_REGULATORY_RISK,
			SUM(CASE WHEN ai_competition_mentioned THEN 1 ELSE 0 END) AS FILINGS_MENTIONING_COMPETITION,
			SUM(CASE WHEN ai_investment_mentioned THEN 1 ELSE 0 END) AS FILINGS_MENTIONING_INVESTMENT
		FROM ai_risk_filings
		GROUP BY company_name, ticker
		ORDER BY AVG_RISK_MENTIONS DESC, COMPANY_NAME`,
}

// Names returns every query name in CLI index order.
func Names() []Name {
	out := make([]Name, len(allNames))
	copy(out, allNames)
	return out
}

// ParseName resolves a selector. Empty input selects the default query.
func ParseName(s string) (Name, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return Default, nil
	}
	if n, ok := aliases[normalized]; ok {
		return n, nil
	}
	n := Name(normalized)
	if _, ok := catalog[n]; !ok {
		return "", common.NewAppError("UNKNOWN_QUERY", fmt.Sprintf("unknown query %q", s), common.ErrInvalidInput)
	}
	return n, nil
}

// ByIndex resolves the positional CLI selector.
func ByIndex(i int) (Name, error) {
	if i < 0 || i >= len(allNames) {
		return "", common.NewAppError("UNKNOWN_QUERY", fmt.Sprintf("query index %d out of range [0,%d]", i, len(allNames)-1), common.ErrInvalidInput)
	}
	return allNames[i], nil
}

// SQL returns the fixed statement for n, or "" for an unknown name.
func (n Name) SQL() string {
	return catalog[n]
}
