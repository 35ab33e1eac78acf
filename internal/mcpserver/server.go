// Package mcpserver exposes the tool registry over MCP-style JSON-RPC 2.0.
//
// Three transports share one dispatcher: line-delimited stdio, HTTP POST,
// and WebSocket. Tool failures are reported as isError text results; only
// malformed requests produce JSON-RPC error objects.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maitred-ai/maitred/internal/tools"
)

const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Server dispatches JSON-RPC requests against a tool registry.
type Server struct {
	registry *tools.Registry
	version  string
}

// NewServer creates the dispatcher. version appears in initialize responses.
func NewServer(registry *tools.Registry, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{registry: registry, version: version}
}

// Handle processes one raw JSON-RPC message and returns the serialized
// response, or nil for notifications (no response expected).
func (s *Server) Handle(ctx context.Context, raw []byte) []byte {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return marshal(errorResponse(nil, codeParseError, "parse error"))
	}
	if req.Method == "" {
		return marshal(errorResponse(req.ID, codeInvalidRequest, "missing method"))
	}
	if len(req.ID) == 0 || string(req.ID) == "null" {
		// Notification: nothing to answer.
		slog.Debug("mcpserver: notification", "method", req.Method)
		return nil
	}

	resp := s.dispatch(ctx, req)
	return marshal(resp)
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	switch req.Method {
	case "initialize":
		return okResponse(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "maitred", "version": s.version},
		})

	case "ping":
		return okResponse(req.ID, map[string]any{})

	case "tools/list":
		descs := make([]toolDescriptor, 0, len(s.registry.All()))
		for _, tool := range s.registry.All() {
			descs = append(descs, toolDescriptor{
				Name:        tool.Name(),
				Description: tool.Description(),
				InputSchema: tool.Parameters(),
			})
		}
		return okResponse(req.ID, map[string]any{"tools": descs})

	case "tools/call":
		return s.callTool(ctx, req)

	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req request) response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params")
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "tool name is required")
	}

	tool := s.registry.Get(params.Name)
	if tool == nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool %q", params.Name))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	slog.Info("mcpserver: tool call", "tool", params.Name)
	out, err := tool.Execute(ctx, params.Arguments)
	if err != nil {
		// Unexpected tool fault, still a result so hosts can show it.
		return okResponse(req.ID, callResult{
			Content: []textContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}
	return okResponse(req.ID, callResult{
		Content: []textContent{{Type: "text", Text: out}},
	})
}

func okResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) response {
	return response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}

func marshal(resp response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("mcpserver: response marshal failed", "err", err)
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
