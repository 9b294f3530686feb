// Package mcpclient implements the outbound session client for a streamable
// HTTP MCP endpoint.
//
// # Session Lifecycle
//
// A [Client] owns exactly one logical session on behalf of one credential. The
// lifecycle is Uninitialized → Initializing → Ready → Closed, with Failed as a
// terminal state reached when the handshake cannot complete. No transition
// leaves a terminal state; calls against a closed or failed client fail fast
// with [shared.ErrSessionNotInitialized] before any network I/O.
//
// # Handshake Retry
//
// Initialize retries on HTTP 429 with capped exponential backoff (1s, 2s, 4s)
// for at most three attempts, then fails with [shared.ErrSessionInitFailed].
// Any other non-2xx status aborts immediately.
//
// # Response Shapes
//
// The remote endpoint answers either with a plain JSON envelope or with a
// single server-sent-event frame carrying the same envelope, depending on
// content negotiation. [DecodeEnvelope] normalizes both shapes; callers never
// see the difference.
package mcpclient
