package mcp

import (
	"context"
	"encoding/json"

	"github.com/RSuyash/repomesh/internal/apperr"
)

const protocolVersion = "2024-11-05"

// Request is one JSON-RPC 2.0 envelope as sent to the MCP HTTP transport.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON-RPC 2.0 envelope returned to the caller. NoBody is
// set when the method is a notification the transport must answer with a
// bare 204, never a JSON body (spec.md section 4.12).
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id,omitempty"`
	Result  any            `json:"result,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`
	NoBody  bool           `json:"-"`
}

type EnvelopeError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Dispatcher is the MCP Dispatcher (C13): decodes a JSON-RPC 2.0 envelope,
// resolves the method, and dispatches tool.call/tools/call into the tool
// catalog. Grounded verbatim on the Python original's mcp/http.py envelope
// (initialize/tools/list/notifications/tool.call/tools/call wrapping and
// error codes), with per-tool argument validation added via
// santhosh-tekuri/jsonschema/v6 — a pack-grounded dependency the original
// did not have but spec.md 4.12 requires ("argument schema is documented
// per tool").
type Dispatcher struct {
	deps    *Dependencies
	catalog []*ToolDef
	byName  map[string]*ToolDef
}

func NewDispatcher(deps *Dependencies) (*Dispatcher, error) {
	catalog, err := BuildCatalog()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*ToolDef, len(catalog))
	for _, def := range catalog {
		byName[def.Name] = def
	}
	return &Dispatcher{deps: deps, catalog: catalog, byName: byName}, nil
}

func initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": "repomesh-mcp", "version": "0.1.0"},
	}
}

// ToolNames returns the catalog's tool names, for GET /mcp/tools.
func (d *Dispatcher) ToolNames() []string {
	names := make([]string, 0, len(d.catalog))
	for _, def := range d.catalog {
		names = append(names, def.Name)
	}
	return names
}

func (d *Dispatcher) toolDefinitions() []map[string]any {
	out := make([]map[string]any, 0, len(d.catalog))
	for _, def := range d.catalog {
		out = append(out, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": def.InputSchema,
		})
	}
	return out
}

func toolResultWrapper(result any) map[string]any {
	text, err := json.Marshal(result)
	if err != nil {
		text = []byte("null")
	}
	return map[string]any{
		"content":           []map[string]any{{"type": "text", "text": string(text)}},
		"structuredContent": result,
		"isError":           false,
	}
}

func errResponse(id any, code apperr.Code, message string, details map[string]any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &EnvelopeError{Code: string(code), Message: message, Details: details}}
}

func okResponse(id any, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// Dispatch decodes and serves one envelope. The caller (the HTTP transport)
// must translate a NoBody response into a bare 204, never a JSON body —
// notifications are fire-and-forget per the MCP protocol.
func (d *Dispatcher) Dispatch(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil || req.Method == "" {
		return errResponse(nil, apperr.CodeValidationError, "method is required and must be a string", nil)
	}

	if req.ID == nil && isNotification(req.Method) {
		return &Response{NoBody: true}
	}

	switch req.Method {
	case "initialize":
		return okResponse(req.ID, initializeResult())
	case "tools/list":
		return okResponse(req.ID, map[string]any{"tools": d.toolDefinitions()})
	case "notifications/initialized":
		return &Response{NoBody: true}
	case "tool.call", "tools/call":
		return d.dispatchCall(ctx, req)
	default:
		return errResponse(req.ID, apperr.CodeInvalidMethod, "Unsupported method", nil)
	}
}

func isNotification(method string) bool {
	return len(method) >= len("notifications/") && method[:len("notifications/")] == "notifications/"
}

func (d *Dispatcher) dispatchCall(ctx context.Context, req Request) *Response {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, apperr.CodeValidationError, "params must be an object", nil)
		}
	}
	if params.Name == "" {
		return errResponse(req.ID, apperr.CodeValidationError, "params.name is required", nil)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	def, ok := d.byName[params.Name]
	if !ok {
		return errResponse(req.ID, apperr.CodeUnknownTool, "unknown tool: "+params.Name, nil)
	}

	if err := validateArguments(def.compiled, params.Arguments); err != nil {
		return errResponse(req.ID, apperr.CodeValidationError, err.Error(), nil)
	}

	result, err := def.Handler(ctx, d.deps, params.Arguments)
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			return errResponse(req.ID, ae.Code, ae.Message, ae.Details)
		}
		return errResponse(req.ID, apperr.CodeInternalError, err.Error(), nil)
	}

	if req.Method == "tools/call" {
		result = toolResultWrapper(result)
	}
	return okResponse(req.ID, result)
}
