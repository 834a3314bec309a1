package middleware

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/utils/v2"
	"github.com/google/uuid"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

const (
	localAuditAction  = "audit_action"
	localAuditDetails = "audit_details"
	localRequestID    = "request_id"

	// RequestIDHeader carries the per-request id back to the caller.
	RequestIDHeader = "X-Request-ID"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// SetAuditAction overrides the default http_request action for this request.
func SetAuditAction(c fiber.Ctx, action string) {
	c.Locals(localAuditAction, action)
}

// AddAuditDetail attaches a key/value pair to this request's audit record.
func AddAuditDetail(c fiber.Ctx, key string, value interface{}) {
	details, _ := c.Locals(localAuditDetails).(map[string]interface{})
	if details == nil {
		details = make(map[string]interface{})
		c.Locals(localAuditDetails, details)
	}
	details[key] = value
}

// GetRequestID returns the id assigned by AuditMiddleware.
func GetRequestID(c fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// AuditMiddleware records every request for compliance purposes.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		requestID := utils.CopyString(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals(localRequestID, requestID)
		c.Set(RequestIDHeader, requestID)

		// Fiber reuses the request buffers once the handler returns, and the
		// record is written from another goroutine, so every string is copied.
		method := utils.CopyString(c.Method())
		path := utils.CopyString(c.Path())
		ip := utils.CopyString(c.IP())
		userAgent := utils.CopyString(c.Get("User-Agent"))

		err := c.Next()

		userID := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			userID = utils.CopyString(uc.UserID)
		}

		action := domain.AuditActionHTTPRequest
		if a, ok := c.Locals(localAuditAction).(string); ok && a != "" {
			action = utils.CopyString(a)
		}

		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  requestID,
		}
		if extra, ok := c.Locals(localAuditDetails).(map[string]interface{}); ok {
			for k, v := range extra {
				details[k] = v
			}
		}
		detailsJSON, _ := json.Marshal(details)

		// Write asynchronously; every value above is an owned copy.
		go func() {
			if writeErr := writer.WriteAudit(
				userID,
				action,
				"api",
				path,
				string(detailsJSON),
				ip,
				userAgent,
			); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}
