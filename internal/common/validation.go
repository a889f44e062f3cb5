package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tensorlakeai/mother-duck/constants"
	"github.com/tensorlakeai/mother-duck/internal/entity"
)

// Widths of the bounded table columns; values longer than these are rejected
// before they reach the database. Filing type, filing date, fiscal year and
// source file are unbounded.
const (
	MaxCompanyNameLen   = 100
	MaxTickerLen        = 10
	MaxFiscalQuarterLen = 10
	MaxRiskCategoryLen  = 50
	MaxSeverityLen      = 20
	MaxCitationLen      = 100
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

// MaxLength builds a rule rejecting strings longer than max runes. Nil
// string pointers pass.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			if strPtr, ok := value.(*string); ok && strPtr != nil {
				str = *strPtr
			} else {
				return nil
			}
		}

		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

// RiskCategory accepts any label that canonicalizes onto the risk vocabulary.
func RiskCategory(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if _, ok := constants.CanonicalizeRisk(str); !ok {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be one of " + strings.Join(constants.AllRiskCategories(), ", "),
		}
	}
	return nil
}

// ValidateFilingRecord checks an extracted record against the persisted
// column constraints. The returned error wraps ErrMalformedRecord.
func ValidateFilingRecord(rec entity.FilingRecord) error {
	v := NewValidator().
		Field("company_name", rec.CompanyName, Required, MaxLength(MaxCompanyNameLen)).
		Field("ticker", rec.Ticker, Required, MaxLength(MaxTickerLen)).
		Field("filing_type", rec.FilingType, Required).
		Field("fiscal_year", rec.FiscalYear, Required).
		Field("fiscal_quarter", rec.FiscalQuarter, MaxLength(MaxFiscalQuarterLen))

	for i, m := range rec.AIRiskMentions {
		prefix := fmt.Sprintf("ai_risk_mentions[%d].", i)
		v.Field(prefix+"risk_category", m.RiskCategory, Required, RiskCategory, MaxLength(MaxRiskCategoryLen)).
			Field(prefix+"risk_description", m.RiskDescription, Required).
			Field(prefix+"severity_indicator", m.SeverityIndicator, MaxLength(MaxSeverityLen)).
			Field(prefix+"citation", m.Citation, MaxLength(MaxCitationLen))
	}

	if v.HasErrors() {
		return NewAppError("MALFORMED_RECORD", v.ErrorMessage(), ErrMalformedRecord)
	}
	return nil
}
