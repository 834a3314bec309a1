package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// Tier names the branch of the fallback ladder that produced a response.
type Tier string

// Response tiers, from least to most capable.
const (
	TierGuidance  Tier = "guidance"   // no usable index
	TierNoContext Tier = "no_context" // nothing retrieved
	TierFailure   Tier = "failure"    // an AI call failed
	TierAnswer    Tier = "answer"     // grounded answer
)

// Outcome describes how a query was answered, for audit and logging.
type Outcome struct {
	Tier        Tier              `json:"tier"`
	IndexState  domain.IndexState `json:"index_state"`
	FailureKind port.FailureKind  `json:"failure_kind,omitempty"`
	Retrieved   int               `json:"retrieved"`
}

// Assistant answers questions from the knowledge index and always produces a
// well-formed Response, degrading step by step when dependencies fail.
type Assistant struct {
	indexes   IndexSource
	retriever *Retriever
	generator port.Generator
	rules     *RuleBook
}

// NewAssistant wires the assistant.
func NewAssistant(indexes IndexSource, retriever *Retriever, generator port.Generator, rules *RuleBook) *Assistant {
	if rules == nil {
		rules = DefaultRuleBook()
	}
	return &Assistant{
		indexes:   indexes,
		retriever: retriever,
		generator: generator,
		rules:     rules,
	}
}

// ProcessQuery answers q. It never fails.
func (a *Assistant) ProcessQuery(ctx context.Context, q domain.Query) domain.Response {
	resp, _ := a.Answer(ctx, q)
	return resp
}

// Answer is ProcessQuery plus a description of the path taken.
func (a *Assistant) Answer(ctx context.Context, q domain.Query) (resp domain.Response, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("assistant panic", "panic", r, "query", q.Text)
			resp = a.failure(port.FailureUnknown)
			out.Tier = TierFailure
			out.FailureKind = port.FailureUnknown
		}
	}()

	state, idx := a.indexes.Active()
	out.IndexState = state
	if !state.Built() || idx == nil || idx.Len() == 0 {
		out.Tier = TierGuidance
		return domain.Response{
			Text:      a.rules.GuidanceText(q.BusinessType, q.ApplicationType),
			SourceTag: domain.SourceSystem,
		}, out
	}

	result, err := a.retriever.Retrieve(ctx, q.Text, 0)
	if err != nil {
		return a.fail(q, &out, "retrieval failed", err)
	}
	out.Retrieved = len(result)
	if result.Empty() {
		out.Tier = TierNoContext
		return domain.Response{
			Text:      a.rules.Fallbacks.NoContext,
			SourceTag: domain.SourceGeneral,
		}, out
	}

	text, err := a.generator.Complete(ctx, ComposePrompt(result, q.Text))
	if err != nil {
		return a.fail(q, &out, "generation failed", err)
	}

	out.Tier = TierAnswer
	sources := distinctSources(result)
	slog.Info("assistant answered",
		"source", sources[0],
		"retrieved", len(result),
		"index_state", state,
		"user_id", q.UserID,
	)
	return domain.Response{
		Text:            text,
		SourceTag:       sources[0],
		RelevantSources: sources,
	}, out
}

func (a *Assistant) fail(q domain.Query, out *Outcome, msg string, err error) (domain.Response, Outcome) {
	kind := port.KindOf(err)
	out.Tier = TierFailure
	out.FailureKind = kind
	slog.Warn("assistant "+msg, "failure_kind", kind, "error", err, "user_id", q.UserID)
	return a.failure(kind), *out
}

// failure maps a failure kind to its canned response.
func (a *Assistant) failure(kind port.FailureKind) domain.Response {
	fb := a.rules.Fallbacks
	switch kind {
	case port.FailureAuth:
		return domain.Response{
			Text:        fb.Auth,
			SourceTag:   domain.SourceSystem,
			Suggestions: cloneStrings(fb.AuthSuggestions),
		}
	case port.FailureRateLimit:
		return domain.Response{Text: fb.RateLimit, SourceTag: domain.SourceSystem}
	default:
		return domain.Response{Text: fb.Apology, SourceTag: domain.SourceSystem}
	}
}

// DocumentSuggestions lists the paperwork for an application.
func (a *Assistant) DocumentSuggestions(businessType, applicationType string) domain.DocumentSuggestions {
	return a.rules.DocumentSuggestions(applicationType)
}

// CheckEligibility evaluates the static eligibility rules.
func (a *Assistant) CheckEligibility(businessType, applicationType string, details map[string]interface{}) domain.EligibilityResult {
	return a.rules.CheckEligibility(applicationType, details)
}

// distinctSources returns source names in retrieval order without duplicates.
func distinctSources(result domain.RetrievalResult) []string {
	seen := make(map[string]bool, len(result))
	out := make([]string, 0, len(result))
	for _, sc := range result {
		name := sc.Chunk.SourceName()
		if name == "" {
			name = domain.SourceGeneral
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// String renders an outcome for logs.
func (o Outcome) String() string {
	if o.FailureKind != "" {
		return fmt.Sprintf("%s/%s", o.Tier, o.FailureKind)
	}
	return string(o.Tier)
}
