package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

func TestBuildAuditQuery(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		action    string
		wantWhere bool
		wantLimit string
		wantArgs  []interface{}
	}{
		{"no filters", 0, "", false, "", []interface{}{}},
		{"limit only", 50, "", false, "LIMIT $1", []interface{}{50}},
		{"action and limit", 10, "assistant_query", true, "LIMIT $2", []interface{}{"assistant_query", 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildAuditQuery(tt.limit, tt.action)
			assert.Equal(t, tt.wantWhere, bytes.Contains([]byte(query), []byte("WHERE action = $1")))
			if tt.wantLimit != "" {
				assert.Contains(t, query, tt.wantLimit)
			} else {
				assert.NotContains(t, query, "LIMIT")
			}
			assert.Contains(t, query, "ORDER BY created_at DESC")
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLogAuditWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLogAuditWriter(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, w.WriteAudit("u-1", "assistant_query", "api", "/api/v1/chat/query", `{"status":200}`, "127.0.0.1", "curl"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["msg"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "assistant_query", entry["action"])

	_, err := w.ListAuditLogs(context.Background(), 10, "")
	assert.ErrorIs(t, err, port.ErrAuditDisabled)
}
