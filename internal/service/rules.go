package service

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

// RuleBook holds every static text and rule table the assistant serves
// without retrieval. DefaultRuleBook carries the built-in content; a YAML
// file can override any section.
type RuleBook struct {
	Guidance    GuidanceRules              `yaml:"guidance"`
	Fallbacks   FallbackTexts              `yaml:"fallbacks"`
	Documents   DocumentRules              `yaml:"documents"`
	Eligibility map[string]EligibilityRule `yaml:"eligibility"`
}

// GuidanceRules build the answer given while no index is available.
type GuidanceRules struct {
	Generic  string            `yaml:"generic"`
	Intro    string            `yaml:"intro"` // placeholders: {application}, {business}
	Outro    string            `yaml:"outro"`
	Profiles []BusinessProfile `yaml:"profiles"`
	Default  []string          `yaml:"default"`
}

// BusinessProfile matches a business type by keyword.
type BusinessProfile struct {
	Name         string   `yaml:"name"`
	Keywords     []string `yaml:"keywords"`
	Requirements []string `yaml:"requirements"`
}

// FallbackTexts are the canned answers for failed queries.
type FallbackTexts struct {
	NoContext       string   `yaml:"no_context"`
	Auth            string   `yaml:"auth"`
	AuthSuggestions []string `yaml:"auth_suggestions"`
	RateLimit       string   `yaml:"rate_limit"`
	Apology         string   `yaml:"apology"`
}

// DocumentRules list paperwork per application type.
type DocumentRules struct {
	Common   []string            `yaml:"common"`
	Specific map[string][]string `yaml:"specific"`
}

// EligibilityRule lists requirements and the business detail flags that, when
// explicitly false, leave a requirement unmet.
type EligibilityRule struct {
	Requirements []string           `yaml:"requirements"`
	Checks       []EligibilityCheck `yaml:"checks"`
}

// EligibilityCheck ties a boolean business detail to a requirement.
type EligibilityCheck struct {
	Field       string `yaml:"field"`
	Requirement string `yaml:"requirement"`
}

// DefaultRuleBook returns the built-in rule book.
func DefaultRuleBook() *RuleBook {
	return &RuleBook{
		Guidance: GuidanceRules{
			Generic: "I can help with basic business registration information, but my advanced AI features are currently unavailable. What specific information are you looking for?",
			Intro:   "I can provide basic information about {application} for {business} businesses, but my advanced AI features are currently unavailable. Here are some common requirements:",
			Outro:   "For more detailed information, please try again later when our AI service is fully available.",
			Profiles: []BusinessProfile{
				{
					Name:     "food",
					Keywords: []string{"food", "restaurant"},
					Requirements: []string{
						"FSSAI license is required for all food businesses",
						"Health trade license from local municipal corporation",
						"GST registration if turnover exceeds ₹20 lakhs",
					},
				},
				{
					Name:     "retail",
					Keywords: []string{"retail", "shop"},
					Requirements: []string{
						"Shop and Establishment license",
						"GST registration if turnover exceeds ₹20 lakhs",
						"Professional tax registration",
					},
				},
			},
			Default: []string{
				"Business registration/incorporation",
				"GST registration if applicable",
				"Professional tax registration",
			},
		},
		Fallbacks: FallbackTexts{
			NoContext: "I don't have specific information about that. Please contact our support team for assistance.",
			Auth:      "I can help with basic business registration information even without AI access. What would you like to know about business registration in Delhi?",
			AuthSuggestions: []string{
				"What documents do I need for business registration?",
				"How do I register a food business in Delhi?",
				"What are the GST requirements for new businesses?",
			},
			RateLimit: "I apologize, but I cannot access the AI service at the moment due to API limitations. You can still ask me about basic business registration information that I have in my local knowledge base.",
			Apology:   "I apologize, but I encountered an error while processing your request. Please try again later.",
		},
		Documents: DocumentRules{
			Common: []string{
				"Business registration certificate",
				"PAN card of the business",
				"Address proof of the premises",
				"ID proof of the business owner",
				"Passport-sized photographs",
			},
			Specific: map[string][]string{
				"fssai": {
					"Food safety management plan",
					"List of food products",
					"Water analysis report",
					"Medical fitness certificates of food handlers",
					"NOC from property owner",
				},
				"shops_act": {
					"Rent agreement/Lease deed",
					"Property tax receipt",
					"Electricity bill of the premises",
					"Floor plan of the establishment",
					"List of employees with details",
				},
				"gst": {
					"Business constitution document",
					"Bank account details",
					"Digital signature",
					"Property documents",
					"Utility bills",
				},
			},
		},
		Eligibility: map[string]EligibilityRule{
			"fssai": {
				Requirements: []string{
					"Business must be registered",
					"Premises must meet hygiene standards",
					"Food safety management system must be in place",
					"Food handlers must have medical fitness certificates",
				},
				Checks: []EligibilityCheck{
					{Field: "registered", Requirement: "Business must be registered"},
					{Field: "hygieneStandards", Requirement: "Premises must meet hygiene standards"},
				},
			},
			"shops_act": {
				Requirements: []string{
					"Business must have a physical establishment",
					"Premises must comply with safety regulations",
					"Working hours must be within permitted limits",
					"Proper employment records must be maintained",
				},
				Checks: []EligibilityCheck{
					{Field: "physicalEstablishment", Requirement: "Business must have a physical establishment"},
					{Field: "safetyCompliance", Requirement: "Premises must comply with safety regulations"},
				},
			},
		},
	}
}

// LoadRuleBook reads a YAML override from path on top of the defaults.
// Sections absent from the file keep their default values.
func LoadRuleBook(path string) (*RuleBook, error) {
	rb := DefaultRuleBook()
	if path == "" {
		return rb, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule book: %w", err)
	}
	if err := yaml.Unmarshal(data, rb); err != nil {
		return nil, fmt.Errorf("parse rule book %s: %w", path, err)
	}
	return rb, nil
}

// GuidanceText composes the canned answer used while no index is available.
func (rb *RuleBook) GuidanceText(businessType, applicationType string) string {
	if businessType == "" || applicationType == "" {
		return rb.Guidance.Generic
	}

	var b strings.Builder
	b.WriteString(strings.NewReplacer(
		"{application}", applicationType,
		"{business}", businessType,
	).Replace(rb.Guidance.Intro))
	b.WriteString("\n\n")
	for _, req := range rb.requirementsFor(businessType) {
		b.WriteString("- ")
		b.WriteString(req)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(rb.Guidance.Outro)
	return b.String()
}

func (rb *RuleBook) requirementsFor(businessType string) []string {
	bt := strings.ToLower(businessType)
	for _, p := range rb.Guidance.Profiles {
		for _, kw := range p.Keywords {
			if strings.Contains(bt, strings.ToLower(kw)) {
				return p.Requirements
			}
		}
	}
	return rb.Guidance.Default
}

// DocumentSuggestions returns the common and application-specific paperwork.
// Unknown application types get only the common list.
func (rb *RuleBook) DocumentSuggestions(applicationType string) domain.DocumentSuggestions {
	specific := rb.Documents.Specific[strings.ToLower(applicationType)]
	return domain.DocumentSuggestions{
		Common:   cloneStrings(rb.Documents.Common),
		Specific: cloneStrings(specific),
	}
}

// CheckEligibility evaluates the rule for applicationType against details.
// Only flags that are present and explicitly false count as unmet; unknown
// application types are eligible with no requirements.
func (rb *RuleBook) CheckEligibility(applicationType string, details map[string]interface{}) domain.EligibilityResult {
	res := domain.EligibilityResult{
		Eligible:            true,
		Requirements:        []string{},
		MissingRequirements: []string{},
	}

	rule, ok := rb.Eligibility[strings.ToLower(applicationType)]
	if !ok {
		return res
	}
	res.Requirements = cloneStrings(rule.Requirements)

	for _, check := range rule.Checks {
		if v, ok := details[check.Field].(bool); ok && !v {
			res.Eligible = false
			res.MissingRequirements = append(res.MissingRequirements, check.Requirement)
		}
	}
	return res
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
