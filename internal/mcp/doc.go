// Package mcp defines the JSON-RPC envelope and tool descriptor types exchanged
// with a Model Context Protocol endpoint over streamable HTTP.
//
// # Envelope
//
// [Request] and [Response] model the JSON-RPC 2.0 framing. A response carries
// exactly one of Result or Error; a notification is a [Request] without an ID.
//
// # Tools
//
// [Tool] describes a named remote procedure with a human-readable description
// and a structural input schema. [ToolInputSchema] is the JSON-schema subset
// the wire format uses: an object shape with typed properties and a required
// list.
//
// The package holds wire types only; transport behavior lives in
// internal/mcpclient (outbound) and internal/server (inbound).
package mcp
