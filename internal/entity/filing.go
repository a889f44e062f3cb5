package entity

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskMention is one AI-related risk statement found in a filing.
type RiskMention struct {
	RiskCategory      string  `json:"risk_category"`
	RiskDescription   string  `json:"risk_description"`
	SeverityIndicator *string `json:"severity_indicator,omitempty"`
	Citation          string  `json:"citation"`
}

// FilingRecord is the structured shape extracted from one filing.
type FilingRecord struct {
	CompanyName            string        `json:"company_name"`
	Ticker                 string        `json:"ticker"`
	FilingType             string        `json:"filing_type"`
	FilingDate             string        `json:"filing_date"`
	FiscalYear             string        `json:"fiscal_year"`
	FiscalQuarter          *string       `json:"fiscal_quarter,omitempty"`
	AIRiskMentioned        bool          `json:"ai_risk_mentioned"`
	AIRiskMentions         []RiskMention `json:"ai_risk_mentions"`
	NumAIRiskMentions      int           `json:"num_ai_risk_mentions"`
	AIStrategyMentioned    bool          `json:"ai_strategy_mentioned"`
	AIInvestmentMentioned  bool          `json:"ai_investment_mentioned"`
	AICompetitionMentioned bool          `json:"ai_competition_mentioned"`
	RegulatoryAIRisk       bool          `json:"regulatory_ai_risk"`
}

// StoredFiling is a persisted FilingRecord plus the bookkeeping columns.
type StoredFiling struct {
	ID         uuid.UUID    `json:"filing_id"`
	SourceFile string       `json:"source_file"`
	IngestedAt time.Time    `json:"ingested_at"`
	Record     FilingRecord `json:"record"`
}

// SourceFileFromURL returns the last path segment of a document URL,
// ignoring query string and fragment. Non-URL input falls back to a plain
// basename.
func SourceFileFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
