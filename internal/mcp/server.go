package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/service"
)

// Assistant is the query surface exposed as MCP tools.
type Assistant interface {
	Answer(ctx context.Context, q domain.Query) (domain.Response, service.Outcome)
	DocumentSuggestions(businessType, applicationType string) domain.DocumentSuggestions
	CheckEligibility(businessType, applicationType string, details map[string]interface{}) domain.EligibilityResult
}

// IndexStatusSource reports the knowledge index lifecycle.
type IndexStatusSource interface {
	Status() domain.IndexStatus
}

// Server implements the Model Context Protocol (MCP) server.
// It exposes the compliance assistant to external AI agents.
type Server struct {
	assistant Assistant
	indexes   IndexStatusSource
	port      string
	version   string
}

// NewServer creates a new MCP server.
func NewServer(assistant Assistant, indexes IndexStatusSource, port string) *Server {
	return &Server{
		assistant: assistant,
		indexes:   indexes,
		port:      port,
		version:   "1.0.0",
	}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

var errInvalidArguments = errors.New("invalid arguments")

// Handler returns the MCP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	slog.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "bizreg-assistant",
				"version": s.version,
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, codeMethodNotFound, "method not found")
		return
	}

	if err != nil {
		code := codeInternalError
		if errors.Is(err, errInvalidArguments) {
			code = codeInvalidParams
		}
		writeError(w, req.ID, code, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	<-r.Context().Done()
}

func (s *Server) listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "ask_assistant",
			Description: "Ask a question about Delhi business registration and compliance",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "The question"},
					"business_type": {"type": "string", "description": "Kind of business, e.g. restaurant"},
					"application_type": {"type": "string", "description": "Licence being sought: fssai, shops_act, gst"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "document_suggestions",
			Description: "List the documents usually needed for an application",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"business_type": {"type": "string"},
					"application_type": {"type": "string"}
				},
				"required": ["business_type", "application_type"]
			}`),
		},
		{
			Name:        "check_eligibility",
			Description: "Check basic eligibility for an application",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"business_type": {"type": "string"},
					"application_type": {"type": "string"},
					"business_details": {"type": "object", "description": "Boolean flags such as registered or hygieneStandards"}
				},
				"required": ["business_type", "application_type"]
			}`),
		},
		{
			Name:        "index_status",
			Description: "Report the state of the knowledge index",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	if len(req.Arguments) == 0 {
		req.Arguments = json.RawMessage(`{}`)
	}

	switch req.Name {
	case "ask_assistant":
		var args struct {
			Query           string `json:"query"`
			BusinessType    string `json:"business_type"`
			ApplicationType string `json:"application_type"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
		}
		if strings.TrimSpace(args.Query) == "" {
			return nil, fmt.Errorf("%w: query is required", errInvalidArguments)
		}

		resp, outcome := s.assistant.Answer(ctx, domain.Query{
			Text:            args.Query,
			BusinessType:    args.BusinessType,
			ApplicationType: args.ApplicationType,
		})
		slog.Info("mcp query answered", "outcome", outcome.String())
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": resp.Text},
			},
			"source":  resp.SourceTag,
			"sources": resp.RelevantSources,
		}, nil

	case "document_suggestions":
		var args struct {
			BusinessType    string `json:"business_type"`
			ApplicationType string `json:"application_type"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
		}
		if args.BusinessType == "" || args.ApplicationType == "" {
			return nil, fmt.Errorf("%w: business_type and application_type are required", errInvalidArguments)
		}
		docs := s.assistant.DocumentSuggestions(args.BusinessType, args.ApplicationType)
		return textResult(formatList("Common documents", docs.Common) + "\n" +
			formatList("Specific documents", docs.Specific)), nil

	case "check_eligibility":
		var args struct {
			BusinessType    string                 `json:"business_type"`
			ApplicationType string                 `json:"application_type"`
			BusinessDetails map[string]interface{} `json:"business_details"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
		}
		if args.BusinessType == "" || args.ApplicationType == "" {
			return nil, fmt.Errorf("%w: business_type and application_type are required", errInvalidArguments)
		}
		res := s.assistant.CheckEligibility(args.BusinessType, args.ApplicationType, args.BusinessDetails)
		verdict := "Eligible"
		if !res.Eligible {
			verdict = "Not eligible"
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": verdict + "\n" + formatList("Missing requirements", res.MissingRequirements)},
			},
			"eligibility": res,
		}, nil

	case "index_status":
		st := s.indexes.Status()
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": fmt.Sprintf("Index %s (%d entries from %d documents)", st.State, st.Entries, len(st.Documents))},
			},
			"status": st,
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

func textResult(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
}

func formatList(title string, items []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(":\n")
	if len(items) == 0 {
		b.WriteString("- none\n")
	}
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return b.String()
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
