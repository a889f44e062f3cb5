package docai

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	recordStringFields = []string{"company_name", "ticker", "filing_type", "filing_date", "fiscal_year", "fiscal_quarter"}
	recordBoolFields   = []string{
		"ai_risk_mentioned",
		"ai_strategy_mentioned",
		"ai_investment_mentioned",
		"ai_competition_mentioned",
		"regulatory_ai_risk",
	}
	mentionStringFields = []string{"risk_category", "risk_description", "severity_indicator", "citation"}
)

// sanitizeRecord repairs the looser shapes extraction sometimes returns so a
// record can still validate:
//   - numbers where strings are expected ("fiscal_year": 2024) become strings
//   - "true"/"false" strings become booleans
//   - a numeric string mention count becomes an integer
//   - empty or null optionals are dropped and strings are trimmed
//
// It returns the rewritten object and the list of touched keys.
func sanitizeRecord(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	for _, k := range recordStringFields {
		if fixString(m, k) {
			changed = append(changed, k)
		}
	}
	if v, ok := m["ticker"].(string); ok && v != strings.ToUpper(v) {
		m["ticker"] = strings.ToUpper(v)
		changed = append(changed, "ticker")
	}
	for _, k := range recordBoolFields {
		if fixBool(m, k) {
			changed = append(changed, k)
		}
	}
	if fixCount(m, "num_ai_risk_mentions") {
		changed = append(changed, "num_ai_risk_mentions")
	}

	switch list := m["ai_risk_mentions"].(type) {
	case nil:
		if _, present := m["ai_risk_mentions"]; present {
			m["ai_risk_mentions"] = []any{}
			changed = append(changed, "ai_risk_mentions(null)")
		}
	case []any:
		for i, item := range list {
			mention, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, k := range mentionStringFields {
				if fixString(mention, k) {
					changed = append(changed, fmt.Sprintf("ai_risk_mentions[%d].%s", i, k))
				}
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}

// fixString trims m[k], stringifies numbers and drops null or blank values.
func fixString(m map[string]any, k string) bool {
	v, ok := m[k]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case nil:
		delete(m, k)
		return true
	case float64:
		m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		return true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			return true
		}
		if s != t {
			m[k] = s
			return true
		}
	}
	return false
}

func fixBool(m map[string]any, k string) bool {
	switch t := m[k].(type) {
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			m[k] = b
			return true
		}
	case nil:
		if _, ok := m[k]; ok {
			m[k] = false
			return true
		}
	}
	return false
}

func fixCount(m map[string]any, k string) bool {
	switch t := m[k].(type) {
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			m[k] = n
			return true
		}
	case float64:
		if t != math.Trunc(t) {
			m[k] = int(t)
			return true
		}
	case nil:
		if _, ok := m[k]; ok {
			delete(m, k)
			return true
		}
	}
	return false
}
