package mcp

import "encoding/json"

// Version is the JSON-RPC protocol version carried in every envelope.
const Version = "2.0"

// ProtocolVersion is the MCP revision declared during the handshake.
const ProtocolVersion = "2025-06-18"

// Method is an MCP method identifier used in JSON-RPC messages.
type Method string

const (
	InitializeMethod              Method = "initialize"
	InitializedNotificationMethod Method = "notifications/initialized"
	ToolsListMethod               Method = "tools/list"
	ToolsCallMethod               Method = "tools/call"
	PingMethod                    Method = "ping"
)

// Request is a JSON-RPC request or notification. A request without an ID is a
// notification and must not receive a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"` // string | number; nil for notifications
	Method  Method          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request envelope with the given id, method, and params.
//
// Params are marshaled immediately so encoding failures surface at call time.
func NewRequest(id any, method Method, params any) (*Request, error) {
	req := &Request{JSONRPC: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = raw
	}
	return req, nil
}

// NewNotification builds a one-way notification envelope.
func NewNotification(method Method, params any) (*Request, error) {
	return NewRequest(nil, method, params)
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC response envelope. Exactly one of Result or Error is
// present; ID echoes the request's id.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail is the JSON-RPC error object.
type ErrorDetail struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewResponse builds a success response echoing id.
func NewResponse(id any, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response echoing id.
func NewErrorResponse(id any, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &ErrorDetail{Code: code, Message: message}}
}

// ImplementationInfo describes the implementation name and version.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises client features during the handshake.
type ClientCapabilities struct {
	Sampling *struct{} `json:"sampling,omitempty"`
	Roots    *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"roots,omitempty"`
}

// ServerCapabilities advertises server features in the handshake result.
type ServerCapabilities struct {
	Tools *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"tools,omitempty"`
	Logging *struct{} `json:"logging,omitempty"`
}

// InitializeParams starts the MCP initialization handshake.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ImplementationInfo `json:"clientInfo"`
}

// InitializeResult returns negotiated capabilities and server info.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ImplementationInfo `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// CallToolParams names the tool to invoke and its arguments.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ListToolsResult returns the available tools.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}
