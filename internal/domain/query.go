package domain

// Query is a single user question plus optional business context.
type Query struct {
	Text            string `json:"query"`
	BusinessType    string `json:"business_type,omitempty"`
	ApplicationType string `json:"application_type,omitempty"`
	UserID          string `json:"user_id,omitempty"`
}

// Response source tags that are not document names.
const (
	SourceSystem  = "system"
	SourceGeneral = "general"
)

// Response is what the assistant returns for every query. SourceTag is either
// SourceSystem, SourceGeneral or the name of the document the answer came from.
type Response struct {
	Text            string   `json:"text"`
	SourceTag       string   `json:"source"`
	RelevantSources []string `json:"relevantSources,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// Degraded reports whether the response came from a fallback path.
func (r Response) Degraded() bool {
	return r.SourceTag == SourceSystem
}

// DocumentSuggestions lists the paperwork for an application.
type DocumentSuggestions struct {
	Common   []string `json:"common"`
	Specific []string `json:"specific"`
}

// EligibilityResult is the outcome of a static eligibility check.
type EligibilityResult struct {
	Eligible            bool     `json:"eligible"`
	Requirements        []string `json:"requirements"`
	MissingRequirements []string `json:"missingRequirements"`
}
