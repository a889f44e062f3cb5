package constants

// ParseStatus is the lifecycle state of a document-AI parse job.
type ParseStatus string

// Values as reported by the parse endpoint.
const (
	ParseStatusPending    ParseStatus = "pending"
	ParseStatusProcessing ParseStatus = "processing"
	ParseStatusSuccessful ParseStatus = "successful"
	ParseStatusFailure    ParseStatus = "failure"
)

// InProgress reports whether the job is still queued or running. Any status
// other than pending or processing is final.
func (s ParseStatus) InProgress() bool {
	return s == ParseStatusPending || s == ParseStatusProcessing
}

// RiskFactorsPageClass is the only page class the classifier asks for.
const (
	RiskFactorsPageClass       = "risk_factors"
	RiskFactorsPageDescription = "Pages that contain risk factors related to AI."
	FilingSchemaName           = "AIRiskExtraction"
)
