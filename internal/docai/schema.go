package docai

import (
	"strings"

	"github.com/tensorlakeai/mother-duck/constants"
)

// BuildFilingJSONSchema returns the JSON-Schema of one FilingRecord as a
// generic map. It is sent to the extraction endpoint and reused locally to
// validate what comes back.
func BuildFilingJSONSchema() map[string]any {
	mention := map[string]any{
		"type":        "object",
		"description": "Individual AI-related risk mention",
		"properties": map[string]any{
			"risk_category": map[string]any{
				"type":        "string",
				"description": "Category: " + strings.Join(constants.AllRiskCategories(), ", "),
			},
			"risk_description":   map[string]any{"type": "string", "description": "Description of the AI risk"},
			"severity_indicator": nullableString("Severity level if mentioned"),
			"citation":           map[string]any{"type": "string", "description": "Page reference"},
		},
		"required": []string{"risk_category", "risk_description", "citation"},
	}

	props := map[string]any{
		"company_name":             map[string]any{"type": "string"},
		"ticker":                   map[string]any{"type": "string"},
		"filing_type":              map[string]any{"type": "string"},
		"filing_date":              map[string]any{"type": "string"},
		"fiscal_year":              map[string]any{"type": "string"},
		"fiscal_quarter":           nullableString(""),
		"ai_risk_mentioned":        map[string]any{"type": "boolean"},
		"ai_risk_mentions":         map[string]any{"type": "array", "items": mention},
		"num_ai_risk_mentions":     map[string]any{"type": "integer", "minimum": 0},
		"ai_strategy_mentioned":    map[string]any{"type": "boolean"},
		"ai_investment_mentioned":  map[string]any{"type": "boolean"},
		"ai_competition_mentioned": map[string]any{"type": "boolean"},
		"regulatory_ai_risk":       map[string]any{"type": "boolean"},
	}
	required := []string{"company_name", "ticker", "filing_type", "filing_date", "fiscal_year", "ai_risk_mentioned"}

	return map[string]any{
		"title":       constants.FilingSchemaName,
		"description": "Complete AI risk data from a filing",
		"type":        "object",
		"properties":  props,
		"required":    required,
	}
}

func nullableString(description string) map[string]any {
	m := map[string]any{"type": []string{"string", "null"}}
	if description != "" {
		m["description"] = description
	}
	return m
}
