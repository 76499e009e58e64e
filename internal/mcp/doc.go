// Package mcp implements the Model Context Protocol (MCP) server for codeindex.
//
// The MCP server exposes three tools to AI coding assistants:
//   - ingest_codebase: Ingest a directory tree as a new root
//   - update_codebase: Reconcile an existing root with its directory
//   - get_status: Report running passes, the last pass and index totals
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is started via the serve command:
//
//	codeindex serve
//
// It listens on stdin for MCP protocol messages and writes responses to
// stdout. Logs go to stderr.
//
// # Tool: ingest_codebase
//
//	Request:
//	{
//	  "name": "ingest_codebase",
//	  "arguments": {"path": "/path/to/project"}
//	}
//
//	Response:
//	{
//	  "run_id": "5f0c...",
//	  "root_id": "a81e...",
//	  "duration_ms": 5120,
//	  "files": {"created": 247, "updated": 0, "skipped": 0, "failed": 0, "deleted": 0},
//	  "entities": {"created": 8432, "failed": 0, "deleted": 0, "chunks": 1210},
//	  "embeddings": {"queued": 1210, "completed": 1210, "failed": 0}
//	}
//
// # Tool: update_codebase
//
// Takes the same path plus the root_id returned by ingest_codebase and
// answers with the same statistics. A root_id whose name differs from the
// directory name is rejected before anything is changed.
//
// # Tool: get_status
//
// Takes no arguments. Reports whether an ingest or update holds the index
// lock, the statistics of the last pass and, for the sqlite backend, record
// totals.
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing or invalid arguments)
//   - -32603: Internal error
//   - -32001: Root not found
//   - -32002: Another ingest or update is running
//   - -32003: Root does not match directory
package mcp
