package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/indexer"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRootNotFound       = -32001 // root_id does not exist in the index
	ErrorCodeIndexingInProgress = -32002 // Another ingest or update is already running
	ErrorCodeRootMismatch       = -32003 // root_id belongs to a different directory
)

// handleIngestCodebase handles the ingest_codebase tool invocation
func (s *Server) handleIngestCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	stats, err := s.indexer.Ingest(ctx, path)
	if err != nil {
		return nil, s.passError("ingest", err)
	}

	return mcp.NewToolResultText(formatJSON(passResponse(stats))), nil
}

// handleUpdateCodebase handles the update_codebase tool invocation
func (s *Server) handleUpdateCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	rootID := getStringDefault(args, "root_id", "")
	if rootID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root_id parameter is required", map[string]interface{}{
			"param":  "root_id",
			"reason": "missing or empty",
		})
	}

	stats, err := s.indexer.Update(ctx, path, rootID)
	if err != nil {
		return nil, s.passError("update", err)
	}

	return mcp.NewToolResultText(formatJSON(passResponse(stats))), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"backend": fmt.Sprint(s.indexer.Index()),
	}

	if op, running := s.indexer.Running(); running {
		response["running"] = true
		response["operation"] = op
	} else {
		response["running"] = false
	}

	if last := s.indexer.LastRun(); last != nil {
		response["last_run"] = passResponse(last)
	}

	if c, ok := s.indexer.Index().(counter); ok {
		counts, err := c.Counts(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to count index records", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["totals"] = map[string]interface{}{
			"roots":      counts.Roots,
			"folders":    counts.Folders,
			"files":      counts.Files,
			"entities":   counts.Entities,
			"embeddings": counts.Embeddings,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// passError maps indexer failures onto MCP error codes
func (s *Server) passError(op string, err error) error {
	s.logger.Warn("tool call failed", slog.String("operation", op), slog.String("error", err.Error()))

	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		if holder, ok := s.indexer.Running(); ok {
			data["operation"] = holder
		}
		return newMCPError(ErrorCodeIndexingInProgress, "another ingest or update is running", data)
	case errors.Is(err, indexer.ErrRootMismatch):
		return newMCPError(ErrorCodeRootMismatch, "root does not match directory", data)
	case errors.Is(err, index.ErrNotFound):
		return newMCPError(ErrorCodeRootNotFound, "root not found", data)
	default:
		return newMCPError(ErrorCodeInternalError, op+" failed", data)
	}
}

// passResponse formats pass statistics for a tool result
func passResponse(stats *indexer.Statistics) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      stats.RunID,
		"root_id":     stats.RootID,
		"duration_ms": stats.Duration.Milliseconds(),
		"folders": map[string]interface{}{
			"created": stats.FoldersCreated,
			"failed":  stats.FoldersFailed,
			"deleted": stats.FoldersDeleted,
		},
		"files": map[string]interface{}{
			"created": stats.FilesCreated,
			"updated": stats.FilesUpdated,
			"skipped": stats.FilesSkipped,
			"failed":  stats.FilesFailed,
			"deleted": stats.FilesDeleted,
		},
		"entities": map[string]interface{}{
			"created": stats.EntitiesCreated,
			"failed":  stats.EntitiesFailed,
			"deleted": stats.EntitiesDeleted,
			"chunks":  stats.ChunksCreated,
		},
		"embeddings": map[string]interface{}{
			"queued":    stats.EmbeddingsPending,
			"completed": stats.EmbeddingsCompleted,
			"failed":    stats.EmbeddingsFailed,
		},
		"delete_failures": stats.DeleteFailures,
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requirePath extracts and validates the path argument
func requirePath(args map[string]interface{}) (string, error) {
	path := getStringDefault(args, "path", "")
	if path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

// validatePath checks if a path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
