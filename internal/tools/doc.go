// Package tools adapts the service clients into named, schema-validated
// remote procedures for the MCP tool server.
//
// # Definitions
//
// A [Definition] is a flat triple of name, description, and input schema plus
// the handler that executes it; no hierarchy exists. Input schemas are derived
// from Go argument structs with invopop/jsonschema so the wire contract and
// the decode target cannot drift apart.
//
// # Dispatch
//
// [Registry.Dispatch] validates the caller's arguments against the schema
// (required fields, primitive types) before the handler runs. Validation
// failures surface as argument errors the transport maps to JSON-RPC
// invalid-params; handler failures are reported inside the tool result so the
// model can read them.
package tools
