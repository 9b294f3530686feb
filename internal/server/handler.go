package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mixtape-sh/mixtape/internal/mcp"
	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/mixtape-sh/mixtape/internal/tools"
)

// sessionIDHeader is assigned during the handshake and required on every
// subsequent call.
const sessionIDHeader = "Mcp-Session-Id"

// Credential headers accepted on POST /mcp, checked in order.
var credentialHeaders = []string{"X-Spotify-Token", "Spotify-Token"}

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 1 << 20

// defaultHeartbeat is the idle keepalive interval on the GET event stream.
const defaultHeartbeat = 15 * time.Second

// TokenValidator checks a caller-presented credential against the upstream
// identity endpoint. [services.SpotifyService] is the production
// implementation.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*services.SpotifyUser, error)
}

// MCPHandler serves the MCP endpoint plus the health and debug routes.
type MCPHandler struct {
	registry  *Registry
	tools     *tools.Registry
	validator TokenValidator
	logger    *log.Logger
	info      mcp.ImplementationInfo
	heartbeat time.Duration
	started   time.Time
}

// MCPHandlerOpts configures an [MCPHandler].
type MCPHandlerOpts struct {
	Registry  *Registry
	Tools     *tools.Registry
	Validator TokenValidator
	Logger    *log.Logger
	Info      mcp.ImplementationInfo
	Heartbeat time.Duration
}

// NewMCPHandler creates the protocol handler.
func NewMCPHandler(opts MCPHandlerOpts) *MCPHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.Info.Name == "" {
		opts.Info = mcp.ImplementationInfo{Name: "mixtape", Version: "0.1.0"}
	}

	return &MCPHandler{
		registry:  opts.Registry,
		tools:     opts.Tools,
		validator: opts.Validator,
		logger:    opts.Logger,
		info:      opts.Info,
		heartbeat: opts.Heartbeat,
		started:   time.Now(),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *MCPHandler) Routes() []string {
	return []string{"/mcp", "/health", "/sessions"}
}

// ServeHTTP dispatches on path and method.
func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		h.handleHealth(w, r)
	case "/sessions":
		h.handleSessions(w, r)
	case "/mcp":
		switch r.Method {
		case http.MethodPost:
			h.handlePost(w, r)
		case http.MethodGet:
			h.handleStream(w, r)
		case http.MethodDelete:
			h.handleDelete(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func (h *MCPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req mcp.Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.respond(w, r, http.StatusBadRequest, mcp.NewErrorResponse(nil, mcp.CodeParseError, "invalid JSON-RPC envelope"))
		return
	}

	if req.Method == mcp.InitializeMethod {
		h.handleInitialize(w, r, &req)
		return
	}

	if req.IsNotification() {
		h.handleNotification(w, r, &req)
		return
	}

	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		h.respond(w, r, http.StatusBadRequest, mcp.NewErrorResponse(req.ID, mcp.CodeInvalidRequest, "missing "+sessionIDHeader+" header"))
		return
	}

	session, err := h.registry.Get(sessionID)
	if err != nil {
		h.respond(w, r, http.StatusNotFound, mcp.NewErrorResponse(req.ID, mcp.CodeInvalidRequest, "unknown session"))
		return
	}

	credential := session.Credential
	if presented := extractCredential(r, req.Params); presented != "" && presented != session.Credential {
		user, err := h.validator.ValidateToken(r.Context(), presented)
		if err != nil {
			h.rejectCredential(w, r, req.ID, err)
			return
		}
		if err := h.registry.UpdateCredential(sessionID, presented, user.ID); err != nil {
			h.respond(w, r, http.StatusNotFound, mcp.NewErrorResponse(req.ID, mcp.CodeInvalidRequest, "unknown session"))
			return
		}
		credential = presented
	}

	ctx := shared.WithCredential(r.Context(), credential)
	h.dispatch(ctx, w, r, &req)
}

func (h *MCPHandler) handleInitialize(w http.ResponseWriter, r *http.Request, req *mcp.Request) {
	credential := extractCredential(r, req.Params)
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return
	}

	user, err := h.validator.ValidateToken(r.Context(), credential)
	if err != nil {
		h.rejectCredential(w, r, req.ID, err)
		return
	}

	session := h.registry.Create(credential, user.ID)

	listChanged := struct {
		ListChanged bool `json:"listChanged"`
	}{}
	result := mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities:    mcp.ServerCapabilities{Tools: &listChanged},
		ServerInfo:      h.info,
		Instructions:    "Call tools/list to discover the music catalog, playlist, playback, and insight procedures.",
	}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode handshake result")
		return
	}

	w.Header().Set(sessionIDHeader, session.ID)
	h.respond(w, r, http.StatusOK, resp)
}

func (h *MCPHandler) handleNotification(w http.ResponseWriter, r *http.Request, req *mcp.Request) {
	if sessionID := r.Header.Get(sessionIDHeader); sessionID != "" {
		// Get refreshes the activity timestamp; an unknown session on a
		// notification is not an error worth reporting.
		if _, err := h.registry.Get(sessionID); err != nil {
			h.logger.Debug("notification for unknown session", "session_id", sessionID, "method", req.Method)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *MCPHandler) dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request, req *mcp.Request) {
	switch req.Method {
	case mcp.PingMethod:
		resp, _ := mcp.NewResponse(req.ID, struct{}{})
		h.respond(w, r, http.StatusOK, resp)

	case mcp.ToolsListMethod:
		resp, err := mcp.NewResponse(req.ID, mcp.ListToolsResult{Tools: h.tools.List()})
		if err != nil {
			h.respond(w, r, http.StatusOK, mcp.NewErrorResponse(req.ID, mcp.CodeInternalError, err.Error()))
			return
		}
		h.respond(w, r, http.StatusOK, resp)

	case mcp.ToolsCallMethod:
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			h.respond(w, r, http.StatusOK, mcp.NewErrorResponse(req.ID, mcp.CodeInvalidParams, "invalid tools/call params"))
			return
		}

		result, err := h.tools.Dispatch(ctx, params.Name, params.Arguments)
		if err != nil {
			code := mcp.CodeInternalError
			switch {
			case errors.Is(err, shared.ErrToolNotFound):
				code = mcp.CodeMethodNotFound
			case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
				code = mcp.CodeInvalidParams
			}
			h.respond(w, r, http.StatusOK, mcp.NewErrorResponse(req.ID, code, err.Error()))
			return
		}

		resp, err := mcp.NewResponse(req.ID, result)
		if err != nil {
			h.respond(w, r, http.StatusOK, mcp.NewErrorResponse(req.ID, mcp.CodeInternalError, err.Error()))
			return
		}
		h.respond(w, r, http.StatusOK, resp)

	default:
		h.respond(w, r, http.StatusOK, mcp.NewErrorResponse(req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method)))
	}
}

// handleStream serves the GET event stream for an existing session: an open
// event followed by periodic heartbeats until the client disconnects or the
// session goes away.
func (h *MCPHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing "+sessionIDHeader+" header")
		return
	}

	if _, err := h.registry.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "event: open\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := h.registry.Get(sessionID); err != nil {
				return
			}
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (h *MCPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing "+sessionIDHeader+" header")
		return
	}

	h.registry.Delete(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MCPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *MCPHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    h.registry.Len(),
		"sessions": h.registry.List(),
	})
}

// rejectCredential maps a validation failure onto the right HTTP status:
// 401 when the upstream rejected the token, 502 when validation itself could
// not be performed.
func (h *MCPHandler) rejectCredential(w http.ResponseWriter, r *http.Request, id any, err error) {
	if errors.Is(err, shared.ErrInvalidCredential) {
		h.logger.Warn("credential rejected", "error", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	h.logger.Error("credential validation unavailable", "error", err)
	writeError(w, http.StatusBadGateway, "credential validation unavailable")
}

// respond writes a JSON-RPC envelope as plain JSON or as a single SSE frame,
// depending on what the caller accepts.
func (h *MCPHandler) respond(w http.ResponseWriter, r *http.Request, status int, resp *mcp.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	if wantsEventStream(r) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		fmt.Fprintf(w, "data: %s\n\n", data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// wantsEventStream reports whether the caller accepts only the event-stream
// encoding for this exchange.
func wantsEventStream(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/event-stream") && !strings.Contains(accept, "application/json")
}

// extractCredential pulls the caller's bearer token from the accepted headers
// or from the spotifyToken field inside the request params.
func extractCredential(r *http.Request, params json.RawMessage) string {
	for _, header := range credentialHeaders {
		if v := r.Header.Get(header); v != "" {
			return v
		}
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if v := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); v != "" {
			return v
		}
	}

	if len(params) > 0 {
		var embedded struct {
			SpotifyToken string `json:"spotifyToken"`
		}
		if err := json.Unmarshal(params, &embedded); err == nil && embedded.SpotifyToken != "" {
			return embedded.SpotifyToken
		}
	}

	return ""
}

// writeError emits a minimal transport-level JSON error body, used before a
// JSON-RPC exchange is possible.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
