// Package mcp is the tool gateway: a JSON-RPC 2.0 client that drives an
// out-of-process tool provider over newline-delimited stdin/stdout.
//
// The layers are Transport (framing and process lifecycle), Client
// (initialize and tools/call) and Gateway, which owns the subprocess,
// performs the handshake once, serializes calls and folds every failure
// into an {"error": ...} tool result.
package mcp
