package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/middleware"
	"github.com/arturoeanton/bizreg-assistant/internal/service"
)

// AssistantService is the part of service.Assistant the HTTP layer uses.
type AssistantService interface {
	Answer(ctx context.Context, q domain.Query) (domain.Response, service.Outcome)
	DocumentSuggestions(businessType, applicationType string) domain.DocumentSuggestions
	CheckEligibility(businessType, applicationType string, details map[string]interface{}) domain.EligibilityResult
}

// AssistantHandler serves the compliance assistant endpoints.
type AssistantHandler struct {
	assistant AssistantService
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(assistant AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Register sets up assistant routes.
func (h *AssistantHandler) Register(router fiber.Router) {
	chat := router.Group("/chat")
	chat.Post("/query", h.Query)
	chat.Post("/chat", h.Query)
	chat.Get("/document-suggestions", h.DocumentSuggestions)
	chat.Post("/check-eligibility", h.CheckEligibility)
}

// Query answers a question. The response is always 200 once the request is
// well formed; degraded answers are signalled by response.source.
func (h *AssistantHandler) Query(c fiber.Ctx) error {
	var body struct {
		Query           string `json:"query"`
		BusinessType    string `json:"businessType"`
		ApplicationType string `json:"applicationType"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query is required"})
	}

	q := domain.Query{
		Text:            body.Query,
		BusinessType:    body.BusinessType,
		ApplicationType: body.ApplicationType,
	}
	if uc := middleware.GetUserContext(c); uc != nil {
		q.UserID = uc.UserID
	}

	resp, outcome := h.assistant.Answer(c.Context(), q)

	middleware.SetAuditAction(c, domain.AuditActionQuery)
	middleware.AddAuditDetail(c, "source", resp.SourceTag)
	middleware.AddAuditDetail(c, "tier", outcome.Tier)
	middleware.AddAuditDetail(c, "index_state", outcome.IndexState)
	if outcome.FailureKind != "" {
		middleware.AddAuditDetail(c, "failure_kind", outcome.FailureKind)
	}

	return c.JSON(fiber.Map{
		"response": resp,
		"query":    body.Query,
	})
}

// DocumentSuggestions lists the paperwork for an application.
func (h *AssistantHandler) DocumentSuggestions(c fiber.Ctx) error {
	businessType := c.Query("businessType")
	applicationType := c.Query("applicationType")
	if businessType == "" || applicationType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Business type and application type are required",
		})
	}
	return c.JSON(h.assistant.DocumentSuggestions(businessType, applicationType))
}

// CheckEligibility evaluates the static eligibility rules.
func (h *AssistantHandler) CheckEligibility(c fiber.Ctx) error {
	var body struct {
		BusinessType    string                 `json:"businessType"`
		ApplicationType string                 `json:"applicationType"`
		BusinessDetails map[string]interface{} `json:"businessDetails"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.BusinessType == "" || body.ApplicationType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Business type and application type are required",
		})
	}
	return c.JSON(h.assistant.CheckEligibility(body.BusinessType, body.ApplicationType, body.BusinessDetails))
}
