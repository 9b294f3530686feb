package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mixtape-sh/mixtape/internal/mcp"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

// sessionIDHeader carries the session identifier on every request after the
// handshake; the server assigns it in the handshake response.
const sessionIDHeader = "Mcp-Session-Id"

const (
	maxInitAttempts  = 3
	defaultUserAgent = "mixtape-mcp-client"
)

// initBackoffUnit scales the handshake retry delay; a variable so tests can
// shrink it.
var initBackoffUnit = time.Second

// State tracks the session lifecycle of a [Client].
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client mediates all procedure calls through one logical session against a
// remote MCP endpoint. It is not safe for concurrent use; callers issue one
// request at a time, matching the single in-flight model of the transport.
type Client struct {
	endpoint   string
	credential string
	httpClient *http.Client
	logger     *log.Logger
	info       mcp.ImplementationInfo

	mu        sync.Mutex
	state     State
	sessionID string
	nextID    int
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	Endpoint   string // full URL of the MCP endpoint, e.g. http://host:8765/mcp
	Credential string // bearer credential presented on every request
	SessionID  string // attach to an existing session instead of initializing
	HTTPClient *http.Client
	Logger     *log.Logger
	Info       mcp.ImplementationInfo
}

// NewClient creates a session client for the given endpoint and credential.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Info.Name == "" {
		opts.Info = mcp.ImplementationInfo{Name: defaultUserAgent, Version: "0.1.0"}
	}

	c := &Client{
		endpoint:   opts.Endpoint,
		credential: opts.Credential,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		info:       opts.Info,
		state:      Uninitialized,
	}
	if opts.SessionID != "" {
		c.sessionID = opts.SessionID
		c.state = Ready
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned session identifier, empty before
// initialization and after close.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// takeRequestID returns the next monotonically increasing request id,
// starting at 1 for the handshake.
func (c *Client) takeRequestID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// Initialize performs the session handshake.
//
// HTTP 429 responses are retried with exponential backoff (1s, 2s, 4s) up to
// three attempts before failing with [shared.ErrSessionInitFailed]. Any other
// non-2xx response fails immediately with [shared.ErrRemoteHandshake]. On
// success the session id is taken from the response header and a best-effort
// "initialized" notification is sent; its failure is logged, not propagated.
func (c *Client) Initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	c.mu.Lock()
	if c.state != Uninitialized {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: client is %s", shared.ErrSessionNotInitialized, state)
	}
	c.state = Initializing
	c.mu.Unlock()

	params := mcp.InitializeParams{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      c.info,
	}

	req, err := mcp.NewRequest(c.takeRequestID(), mcp.InitializeMethod, params)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("failed to build handshake: %w", err)
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		resp, err = c.post(ctx, req, "")
		if err != nil {
			c.fail()
			return nil, fmt.Errorf("%w: %v", shared.ErrRemoteHandshake, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		delay := time.Duration(1<<attempt) * initBackoffUnit
		c.logger.Warn("rate limited during handshake", "attempt", attempt+1, "delay", delay)

		if err := sleep(ctx, delay); err != nil {
			c.fail()
			return nil, fmt.Errorf("%w: %v", shared.ErrSessionInitFailed, err)
		}

		if attempt+1 >= maxInitAttempts {
			c.fail()
			return nil, fmt.Errorf("%w: rate limited after %d attempts", shared.ErrSessionInitFailed, maxInitAttempts)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: failed to read body: %v", shared.ErrRemoteHandshake, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.fail()
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrRemoteHandshake, resp.StatusCode, truncate(string(body), diagnosticLimit))
	}

	sessionID := resp.Header.Get(sessionIDHeader)
	if sessionID == "" {
		c.fail()
		return nil, fmt.Errorf("%w: handshake response carried no %s header", shared.ErrMissingSessionID, sessionIDHeader)
	}

	envelope, err := DecodeEnvelope(body)
	if err != nil {
		c.fail()
		return nil, err
	}
	if envelope.Error != nil {
		c.fail()
		return nil, fmt.Errorf("%w: %s", shared.ErrRemoteProcedure, envelope.Error.Message)
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: bad handshake result: %v", shared.ErrRemoteHandshake, err)
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.state = Ready
	c.mu.Unlock()

	c.notifyInitialized(ctx, sessionID)

	c.logger.Debug("session established", "session_id", sessionID, "server", result.ServerInfo.Name)
	return &result, nil
}

// notifyInitialized sends the fire-and-forget "initialized" notification.
// Failures are logged and swallowed; initialization already succeeded.
func (c *Client) notifyInitialized(ctx context.Context, sessionID string) {
	note, err := mcp.NewNotification(mcp.InitializedNotificationMethod, nil)
	if err != nil {
		c.logger.Warn("failed to build initialized notification", "error", err)
		return
	}

	resp, err := c.post(ctx, note, sessionID)
	if err != nil {
		c.logger.Warn("failed to deliver initialized notification", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// CallTool invokes a named remote procedure with the given arguments and
// returns the raw JSON-RPC result.
func (c *Client) CallTool(ctx context.Context, name string, args any) (json.RawMessage, error) {
	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("%w: arguments: %v", shared.ErrInvalidInput, err)
		}
		raw = data
	}

	params := mcp.CallToolParams{Name: name, Arguments: raw}
	return c.call(ctx, mcp.ToolsCallMethod, params)
}

// ListTools enumerates the procedures the remote endpoint exposes.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := c.call(ctx, mcp.ToolsListMethod, nil)
	if err != nil {
		return nil, err
	}

	var list mcp.ListToolsResult
	if err := json.Unmarshal(result, &list); err != nil {
		return nil, fmt.Errorf("%w: bad tool listing: %v", shared.ErrRemoteCall, err)
	}

	return list.Tools, nil
}

// call sends one JSON-RPC request through the established session.
func (c *Client) call(ctx context.Context, method mcp.Method, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != Ready {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: client is %s", shared.ErrSessionNotInitialized, state)
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	req, err := mcp.NewRequest(c.takeRequestID(), method, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.post(ctx, req, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteCall, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", shared.ErrRemoteCall, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrRemoteCall, resp.StatusCode, truncate(string(body), diagnosticLimit))
	}

	envelope, err := DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrRemoteProcedure, envelope.Error.Message)
	}

	return envelope.Result, nil
}

// Close notifies the remote endpoint that the session is ending and clears the
// local session id so the client cannot be reused. Network failures are logged
// and swallowed; a second Close is a no-op.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.sessionID
	if sessionID == "" {
		if c.state != Failed {
			c.state = Closed
		}
		c.mu.Unlock()
		return
	}
	c.sessionID = ""
	c.state = Closed
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		c.logger.Warn("failed to build session close request", "error", err)
		return
	}
	req.Header.Set(sessionIDHeader, sessionID)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to close remote session", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.logger.Debug("session closed", "session_id", sessionID)
}

// post sends an envelope to the endpoint, attaching the session header when a
// session id is known.
func (c *Client) post(ctx context.Context, envelope *mcp.Request, sessionID string) (*http.Response, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set(sessionIDHeader, sessionID)
	}
	c.authorize(req)

	return c.httpClient.Do(req)
}

func (c *Client) authorize(req *http.Request) {
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
}

func (c *Client) fail() {
	c.mu.Lock()
	c.state = Failed
	c.mu.Unlock()
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
