package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// APIError is a non-2xx answer from an upstream AI service.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// errThrottled marks a call that could not get a slot from the local rate
// limiter before its deadline.
var errThrottled = errors.New("local rate limiter")

var (
	authMarkers      = []string{"api key", "api_key", "apikey", "authentication", "unauthorized", "invalid token", "permission denied"}
	rateLimitMarkers = []string{"rate limit", "rate_limit", "ratelimit", "quota", "too many requests"}
)

// Classify maps an error from an upstream call to a FailureKind. It is the
// only place in the module that looks at status codes and error bodies.
func Classify(err error) port.FailureKind {
	if err == nil {
		return port.FailureUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Body)
	}

	switch {
	case errors.Is(err, errThrottled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return port.FailureTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return port.FailureTransient
	}
	return port.FailureUnknown
}

func classifyStatus(status int, body string) port.FailureKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return port.FailureAuth
	case status == http.StatusTooManyRequests:
		return port.FailureRateLimit
	}

	lower := strings.ToLower(body)
	if containsAny(lower, rateLimitMarkers) {
		return port.FailureRateLimit
	}
	if containsAny(lower, authMarkers) {
		return port.FailureAuth
	}

	switch {
	case status == http.StatusRequestTimeout, status >= 500:
		return port.FailureTransient
	}
	return port.FailureUnknown
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func embeddingError(err error) error {
	return &port.EmbeddingError{Kind: Classify(err), Err: err}
}

func generationError(err error) error {
	return &port.GenerationError{Kind: Classify(err), Err: err}
}
