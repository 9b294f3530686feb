// Package server hosts the MCP tool endpoint and the OAuth callback flow.
//
// # Endpoint
//
// One logical endpoint serves the whole protocol surface:
//
//	POST   /mcp      → JSON-RPC call or session initialization
//	GET    /mcp      → server-sent-event stream for an existing session
//	DELETE /mcp      → explicit session close
//	GET    /health   → liveness probe
//	GET    /sessions → debug listing of live sessions
//
// A credential must accompany every POST, accepted as X-Spotify-Token,
// Spotify-Token, Authorization: Bearer, or a spotifyToken field inside the
// initialize params. Non-initialize calls additionally require the
// Mcp-Session-Id header assigned during the handshake.
//
// # Sessions
//
// The [Registry] maps session ids to credentials and activity timestamps. A
// credential is validated against the upstream identity endpoint once per new
// session and once per credential change; failures reject with HTTP 401.
// Sessions idle past the timeout are swept on a fixed interval, and shutdown
// closes every open session within a bounded grace period.
//
// # Request-scoped credentials
//
// The validated credential travels in the request context
// ([shared.WithCredential]); nothing credential-shaped is ever stored in a
// package-level variable, so interleaved requests cannot observe each other.
package server
