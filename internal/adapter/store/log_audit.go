package store

import (
	"context"
	"log/slog"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// LogAuditWriter writes audit records to the structured log. It is used
// when no database is configured.
type LogAuditWriter struct {
	logger *slog.Logger
}

// NewLogAuditWriter creates a writer; a nil logger selects slog.Default().
func NewLogAuditWriter(logger *slog.Logger) *LogAuditWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAuditWriter{logger: logger}
}

// WriteAudit implements middleware.AuditWriter.
func (w *LogAuditWriter) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	w.logger.Info("audit",
		"user_id", userID,
		"action", action,
		"resource", resource,
		"resource_id", resourceID,
		"details", details,
		"ip", ip,
		"user_agent", userAgent,
	)
	return nil
}

// ListAuditLogs reports that log-only audit records cannot be queried.
func (w *LogAuditWriter) ListAuditLogs(_ context.Context, _ int, _ string) ([]domain.AuditLog, error) {
	return nil, port.ErrAuditDisabled
}
