package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mixtape-sh/mixtape/internal/mcp"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

func shrinkBackoff(t *testing.T) {
	t.Helper()
	prev := initBackoffUnit
	initBackoffUnit = time.Millisecond
	t.Cleanup(func() { initBackoffUnit = prev })
}

func writeHandshake(w http.ResponseWriter, id any, sessionID string) {
	if sessionID != "" {
		w.Header().Set("Mcp-Session-Id", sessionID)
	}
	w.Header().Set("Content-Type", "application/json")

	result := mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		ServerInfo:      mcp.ImplementationInfo{Name: "test-server", Version: "0.0.1"},
	}
	resp, _ := mcp.NewResponse(id, result)
	json.NewEncoder(w).Encode(resp)
}

func decodeRequest(t *testing.T, r *http.Request) mcp.Request {
	t.Helper()
	var req mcp.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	return req
}

func TestClientInitialize(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var requests []mcp.Request

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			requests = append(requests, req)

			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}

			if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
				t.Errorf("expected bearer credential, got %q", got)
			}
			writeHandshake(w, req.ID, "session-abc")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "token-1"})

		result, err := client.Initialize(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ServerInfo.Name != "test-server" {
			t.Errorf("unexpected server info: %+v", result.ServerInfo)
		}
		if client.State() != Ready {
			t.Errorf("expected Ready state, got %s", client.State())
		}
		if client.SessionID() != "session-abc" {
			t.Errorf("unexpected session id %q", client.SessionID())
		}

		if len(requests) != 2 {
			t.Fatalf("expected handshake plus notification, got %d requests", len(requests))
		}
		if id, ok := requests[0].ID.(float64); !ok || id != 1 {
			t.Errorf("expected handshake id 1, got %v", requests[0].ID)
		}
		if requests[1].Method != mcp.InitializedNotificationMethod {
			t.Errorf("expected initialized notification, got %s", requests[1].Method)
		}
		if !requests[1].IsNotification() {
			t.Error("initialized notification must carry no id")
		}
	})

	t.Run("Rate Limited Then Success", func(t *testing.T) {
		shrinkBackoff(t)

		var posts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}

			if posts.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeHandshake(w, req.ID, "session-retry")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		if _, err := client.Initialize(context.Background()); err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if got := posts.Load(); got != 3 {
			t.Errorf("expected 3 handshake attempts, got %d", got)
		}
	})

	t.Run("Rate Limited Exhausted", func(t *testing.T) {
		shrinkBackoff(t)

		var posts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			posts.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		_, err := client.Initialize(context.Background())
		if !errors.Is(err, shared.ErrSessionInitFailed) {
			t.Fatalf("expected ErrSessionInitFailed, got %v", err)
		}
		if got := posts.Load(); got != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", got)
		}
		if client.State() != Failed {
			t.Errorf("expected Failed state, got %s", client.State())
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		_, err := client.Initialize(context.Background())
		if !errors.Is(err, shared.ErrRemoteHandshake) {
			t.Fatalf("expected ErrRemoteHandshake, got %v", err)
		}
		if !strings.Contains(err.Error(), "500") {
			t.Errorf("expected status in error, got %v", err)
		}
	})

	t.Run("Missing Session Header", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			writeHandshake(w, req.ID, "")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		if _, err := client.Initialize(context.Background()); !errors.Is(err, shared.ErrMissingSessionID) {
			t.Fatalf("expected ErrMissingSessionID, got %v", err)
		}
	})

	t.Run("Event Stream Handshake", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}

			resp, _ := mcp.NewResponse(req.ID, mcp.InitializeResult{
				ProtocolVersion: mcp.ProtocolVersion,
				ServerInfo:      mcp.ImplementationInfo{Name: "sse-server"},
			})
			data, _ := json.Marshal(resp)

			w.Header().Set("Mcp-Session-Id", "session-sse")
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "data: %s\n\n", data)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		result, err := client.Initialize(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ServerInfo.Name != "sse-server" {
			t.Errorf("unexpected server info: %+v", result.ServerInfo)
		}
	})

	t.Run("Second Initialize Rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			writeHandshake(w, req.ID, "session-x")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})
		if _, err := client.Initialize(context.Background()); err != nil {
			t.Fatalf("first initialize failed: %v", err)
		}

		if _, err := client.Initialize(context.Background()); !errors.Is(err, shared.ErrSessionNotInitialized) {
			t.Fatalf("expected ErrSessionNotInitialized, got %v", err)
		}
	})
}

func TestClientCalls(t *testing.T) {
	newReadyClient := func(t *testing.T, handler func(w http.ResponseWriter, req mcp.Request, r *http.Request)) (*Client, *httptest.Server) {
		t.Helper()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			if req.Method == mcp.InitializeMethod {
				writeHandshake(w, req.ID, "session-call")
				return
			}
			handler(w, req, r)
		}))
		t.Cleanup(srv.Close)

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "tok"})
		if _, err := client.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}
		return client, srv
	}

	t.Run("CallTool Before Initialize", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})

		_, err := client.CallTool(context.Background(), "spotify_search", nil)
		if !errors.Is(err, shared.ErrSessionNotInitialized) {
			t.Fatalf("expected ErrSessionNotInitialized, got %v", err)
		}
		if hits.Load() != 0 {
			t.Error("expected no network traffic before initialization")
		}
	})

	t.Run("CallTool Success", func(t *testing.T) {
		client, _ := newReadyClient(t, func(w http.ResponseWriter, req mcp.Request, r *http.Request) {
			if r.Header.Get("Mcp-Session-Id") != "session-call" {
				t.Error("expected session header on tool call")
			}
			if req.Method != mcp.ToolsCallMethod {
				t.Errorf("expected tools/call, got %s", req.Method)
			}
			if id, ok := req.ID.(float64); !ok || id != 2 {
				t.Errorf("expected request id 2, got %v", req.ID)
			}

			var params mcp.CallToolParams
			if err := json.Unmarshal(req.Params, &params); err != nil {
				t.Fatalf("bad params: %v", err)
			}
			if params.Name != "spotify_search" {
				t.Errorf("unexpected tool name %q", params.Name)
			}

			resp, _ := mcp.NewResponse(req.ID, map[string]any{"hits": 3})
			json.NewEncoder(w).Encode(resp)
		})

		result, err := client.CallTool(context.Background(), "spotify_search", map[string]any{"query": "dylan"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(string(result), `"hits":3`) {
			t.Errorf("unexpected result: %s", result)
		}
	})

	t.Run("Remote Procedure Error", func(t *testing.T) {
		client, _ := newReadyClient(t, func(w http.ResponseWriter, req mcp.Request, r *http.Request) {
			json.NewEncoder(w).Encode(mcp.NewErrorResponse(req.ID, mcp.CodeInvalidParams, "missing query"))
		})

		_, err := client.CallTool(context.Background(), "spotify_search", nil)
		if !errors.Is(err, shared.ErrRemoteProcedure) {
			t.Fatalf("expected ErrRemoteProcedure, got %v", err)
		}
		if !strings.Contains(err.Error(), "missing query") {
			t.Errorf("expected remote message in error, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client, _ := newReadyClient(t, func(w http.ResponseWriter, req mcp.Request, r *http.Request) {
			http.Error(w, "overloaded", http.StatusBadGateway)
		})

		_, err := client.CallTool(context.Background(), "spotify_search", nil)
		if !errors.Is(err, shared.ErrRemoteCall) {
			t.Fatalf("expected ErrRemoteCall, got %v", err)
		}
	})

	t.Run("ListTools", func(t *testing.T) {
		client, _ := newReadyClient(t, func(w http.ResponseWriter, req mcp.Request, r *http.Request) {
			if req.Method != mcp.ToolsListMethod {
				t.Errorf("expected tools/list, got %s", req.Method)
			}
			resp, _ := mcp.NewResponse(req.ID, mcp.ListToolsResult{
				Tools: []mcp.Tool{{Name: "spotify_search"}, {Name: "generate_text"}},
			})
			json.NewEncoder(w).Encode(resp)
		})

		tools, err := client.ListTools(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tools) != 2 || tools[0].Name != "spotify_search" {
			t.Errorf("unexpected listing: %+v", tools)
		}
	})
}

func TestClientClose(t *testing.T) {
	t.Run("Sends Delete Once", func(t *testing.T) {
		var deletes atomic.Int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				if r.Header.Get("Mcp-Session-Id") != "session-close" {
					t.Error("expected session header on delete")
				}
				deletes.Add(1)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			writeHandshake(w, req.ID, "session-close")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})
		if _, err := client.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		client.Close(context.Background())
		client.Close(context.Background())

		if got := deletes.Load(); got != 1 {
			t.Errorf("expected exactly one delete, got %d", got)
		}
		if client.State() != Closed {
			t.Errorf("expected Closed state, got %s", client.State())
		}
		if client.SessionID() != "" {
			t.Error("expected session id cleared")
		}
	})

	t.Run("Close Without Session", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})
		client.Close(context.Background())

		if hits.Load() != 0 {
			t.Error("expected no network traffic")
		}
		if client.State() != Closed {
			t.Errorf("expected Closed state, got %s", client.State())
		}
	})

	t.Run("Call After Close", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			req := decodeRequest(t, r)
			if req.IsNotification() {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			writeHandshake(w, req.ID, "session-y")
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t"})
		if _, err := client.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}
		client.Close(context.Background())

		if _, err := client.CallTool(context.Background(), "x", nil); !errors.Is(err, shared.ErrSessionNotInitialized) {
			t.Fatalf("expected ErrSessionNotInitialized, got %v", err)
		}
	})

	t.Run("Resume Existing Session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			req := decodeRequest(t, r)
			resp, _ := mcp.NewResponse(req.ID, mcp.ListToolsResult{})
			json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()

		client := NewClient(ClientOpts{Endpoint: srv.URL, Credential: "t", SessionID: "resumed"})
		if client.State() != Ready {
			t.Fatalf("expected Ready state, got %s", client.State())
		}
		if _, err := client.ListTools(context.Background()); err != nil {
			t.Fatalf("expected resumed call to work, got %v", err)
		}
	})
}
