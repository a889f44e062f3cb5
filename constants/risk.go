package constants

import (
	"strings"
)

type RiskCategory string

const (
	Operational RiskCategory = "Operational"
	Regulatory  RiskCategory = "Regulatory"
	Competitive RiskCategory = "Competitive"
	Ethical     RiskCategory = "Ethical"
	Security    RiskCategory = "Security"
	Liability   RiskCategory = "Liability"
)

var allRiskCategories = []RiskCategory{
	Operational,
	Regulatory,
	Competitive,
	Ethical,
	Security,
	Liability,
}

func AllRiskCategories() []string {
	result := make([]string, len(allRiskCategories))
	for i, cat := range allRiskCategories {
		result[i] = string(cat)
	}
	return result
}

// CanonicalizeRisk maps a free-form category label onto the fixed vocabulary.
// The second return is false when the label matches nothing.
func CanonicalizeRisk(input string) (RiskCategory, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]RiskCategory{
		"operations":    Operational,
		"operational":   Operational,
		"regulation":    Regulatory,
		"regulatory":    Regulatory,
		"legal":         Liability,
		"competition":   Competitive,
		"cybersecurity": Security,
		"privacy":       Security,
		"ethics":        Ethical,
		"reputational":  Ethical,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allRiskCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}
	return "", false
}
