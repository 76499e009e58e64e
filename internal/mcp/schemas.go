package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestCodebaseTool returns the tool definition for ingest_codebase
func ingestCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_codebase",
		Description: "Ingest a directory tree into the index as a new root, extracting entities and queueing their embeddings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to ingest",
				},
			},
			Required: []string{"path"},
		},
	}
}

// updateCodebaseTool returns the tool definition for update_codebase
func updateCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_codebase",
		Description: "Reconcile an existing root with its directory: ingest new entries, re-extract stale files, delete vanished ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory the root was ingested from",
				},
				"root_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the root returned by ingest_codebase",
				},
			},
			Required: []string{"path", "root_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report whether a pass is running, the statistics of the last pass and index totals",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
