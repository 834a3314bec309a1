package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

var testJWT = JWTConfig{Secret: "test-secret", Issuer: "bizreg-assistant", ExpiresIn: time.Hour}

func whoAmI(c fiber.Ctx) error {
	uid := ""
	if uc := GetUserContext(c); uc != nil {
		uid = uc.UserID
	}
	return c.JSON(fiber.Map{"user_id": uid})
}

func userIDFrom(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["user_id"]
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Use(OptionalAuth(testJWT))
	app.Get("/me", whoAmI)

	valid, err := GenerateJWT(domain.UserContext{UserID: "u-42", Role: "user"}, testJWT)
	require.NoError(t, err)
	otherIssuer, err := GenerateJWT(domain.UserContext{UserID: "u-1"}, JWTConfig{Secret: testJWT.Secret, Issuer: "other", ExpiresIn: time.Hour})
	require.NoError(t, err)
	expired, err := GenerateJWT(domain.UserContext{UserID: "u-2"}, JWTConfig{Secret: testJWT.Secret, Issuer: testJWT.Issuer, ExpiresIn: -time.Hour})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"no token", "", "", ""},
		{"valid bearer", "Bearer " + valid, "", "u-42"},
		{"valid query token", "", valid, "u-42"},
		{"garbage", "Bearer not.a.jwt", "", ""},
		{"wrong issuer", "Bearer " + otherIssuer, "", ""},
		{"expired", "Bearer " + expired, "", ""},
		{"tampered", "Bearer " + valid + "x", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode, "optional auth never rejects")
			assert.Equal(t, tt.want, userIDFrom(t, resp))
		})
	}
}

func TestValidateJWT_Errors(t *testing.T) {
	expired, err := GenerateJWT(domain.UserContext{UserID: "u"}, JWTConfig{Secret: "s", Issuer: "i", ExpiresIn: -time.Minute})
	require.NoError(t, err)

	_, err = validateJWT(expired, "s", "i")
	assert.ErrorContains(t, err, "expired")

	_, err = validateJWT("a.b", "s", "i")
	assert.ErrorContains(t, err, "format")
}

func TestRequireAdmin(t *testing.T) {
	admin, err := GenerateJWT(domain.UserContext{UserID: "root", Role: "admin"}, testJWT)
	require.NoError(t, err)
	user, err := GenerateJWT(domain.UserContext{UserID: "u", Role: "user"}, testJWT)
	require.NoError(t, err)

	newApp := func(token string) *fiber.App {
		app := fiber.New()
		app.Use(OptionalAuth(testJWT))
		app.Post("/rebuild", RequireAdmin(token), func(c fiber.Ctx) error {
			return c.SendStatus(fiber.StatusAccepted)
		})
		return app
	}

	tests := []struct {
		name       string
		adminToken string
		header     string
		want       int
	}{
		{"open when unset", "", "", http.StatusAccepted},
		{"missing credentials", "s3cret", "", http.StatusUnauthorized},
		{"static token", "s3cret", "Bearer s3cret", http.StatusAccepted},
		{"wrong static token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"admin jwt", "s3cret", "Bearer " + admin, http.StatusAccepted},
		{"non-admin jwt", "s3cret", "Bearer " + user, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newApp(tt.adminToken).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

type auditRecord struct {
	userID, action, resourceID, details string
}

type recordingWriter struct {
	mu      sync.Mutex
	records []auditRecord
}

func (w *recordingWriter) WriteAudit(userID, action, _, resourceID, details, _, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, auditRecord{userID, action, resourceID, details})
	return nil
}

func (w *recordingWriter) snapshot() []auditRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]auditRecord(nil), w.records...)
}

func TestAuditMiddleware(t *testing.T) {
	writer := &recordingWriter{}
	app := fiber.New()
	app.Use(AuditMiddleware(writer))
	app.Use(OptionalAuth(testJWT))
	app.Post("/query", func(c fiber.Ctx) error {
		SetAuditAction(c, domain.AuditActionQuery)
		AddAuditDetail(c, "source", "gst.txt")
		AddAuditDetail(c, "tier", "answer")
		return c.JSON(fiber.Map{"ok": true, "request_id": GetRequestID(c)})
	})

	token, err := GenerateJWT(domain.UserContext{UserID: "u-7"}, testJWT)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(RequestIDHeader, "req-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	require.Eventually(t, func() bool { return len(writer.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	rec := writer.snapshot()[0]
	assert.Equal(t, "u-7", rec.userID)
	assert.Equal(t, domain.AuditActionQuery, rec.action)
	assert.Equal(t, "/query", rec.resourceID)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rec.details), &details))
	assert.Equal(t, "gst.txt", details["source"])
	assert.Equal(t, "answer", details["tier"])
	assert.Equal(t, "req-123", details["request_id"])
	assert.EqualValues(t, 200, details["status"])
}

func TestAuditMiddleware_GeneratesRequestID(t *testing.T) {
	writer := &recordingWriter{}
	app := fiber.New()
	app.Use(AuditMiddleware(writer))
	app.Get("/health", func(c fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	require.Eventually(t, func() bool { return len(writer.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "anonymous", writer.snapshot()[0].userID)
	assert.Equal(t, domain.AuditActionHTTPRequest, writer.snapshot()[0].action)
}

type delayedWriter struct {
	delay time.Duration

	mu   sync.Mutex
	seen map[string]string // resource id -> user agent
}

func (w *delayedWriter) WriteAudit(_, _, _, resourceID, _, _, userAgent string) error {
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[resourceID] = userAgent
	return nil
}

func (w *delayedWriter) snapshot() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.seen))
	for k, v := range w.seen {
		out[k] = v
	}
	return out
}

func TestAuditMiddleware_RecordsOutliveRequest(t *testing.T) {
	writer := &delayedWriter{delay: 50 * time.Millisecond, seen: map[string]string{}}
	app := fiber.New()
	app.Use(AuditMiddleware(writer))
	app.Get("/p/:n", func(c fiber.Ctx) error { return c.SendString("ok") })

	const n = 200
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/p/%04d", i), nil)
		req.Header.Set("User-Agent", fmt.Sprintf("agent-%04d", i))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	require.Eventually(t, func() bool { return len(writer.snapshot()) == n }, 10*time.Second, 20*time.Millisecond)
	for path, agent := range writer.snapshot() {
		assert.Equal(t, "agent-"+path[len("/p/"):], agent, "record for %s", path)
	}
}
