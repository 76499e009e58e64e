package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HelixDB/codebase-index/pkg/types"
)

const (
	// DefaultAddress is where the index service listens by default
	DefaultAddress = "http://localhost:6969"
	// DefaultTimeout bounds every index request
	DefaultTimeout = 30 * time.Second
)

// HTTPClient talks to the index service's JSON query endpoints.
// Every call is a POST to {address}/{endpoint} with a JSON body.
type HTTPClient struct {
	address    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the service at address
func NewHTTPClient(address string) *HTTPClient {
	if address == "" {
		address = DefaultAddress
	}
	return &HTTPClient{
		address: strings.TrimRight(address, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Address returns the service base URL
func (c *HTTPClient) Address() string {
	return c.address
}

// Ping waits until the service accepts connections. Any HTTP response counts as up.
func (c *HTTPClient) Ping(ctx context.Context, cfg RetryConfig) error {
	_, err := retryWithBackoff(ctx, cfg, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.address, nil)
		if err != nil {
			return struct{}{}, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		_ = resp.Body.Close()
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("index service at %s unreachable: %w", c.address, err)
	}
	return nil
}

// call posts body to endpoint and decodes the response into out (if non-nil)
func (c *HTTPClient) call(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrRemoteStatus, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

// response is the top-level JSON object returned by every endpoint
type response map[string]json.RawMessage

// one returns the record stored under key. The service returns either an
// object or a one-element array for single records.
func (r response) one(key string) (json.RawMessage, error) {
	raw, ok := r[key]
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMissingField, key, err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %q is empty", ErrMissingField, key)
		}
		return items[0], nil
	}
	return raw, nil
}

// many decodes the list stored under key; an absent key is an empty list
func (r response) many(key string, out interface{}) error {
	raw, ok := r[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMissingField, key, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// recordID accepts string or numeric ids
type recordID string

func (id *recordID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = recordID(n.String())
	return nil
}

type idRecord struct {
	ID recordID `json:"id"`
}

// createID calls a create endpoint and extracts key.id
func (c *HTTPClient) createID(ctx context.Context, endpoint, key string, body interface{}) (string, error) {
	var resp response
	if err := c.call(ctx, endpoint, body, &resp); err != nil {
		return "", err
	}
	raw, err := resp.one(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", endpoint, err)
	}
	var rec idRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
		return "", fmt.Errorf("%s: %w: %s.id", endpoint, ErrMissingField, key)
	}
	return string(rec.ID), nil
}

func (c *HTTPClient) CreateRoot(ctx context.Context, name string) (string, error) {
	return c.createID(ctx, "createRoot", "root", map[string]interface{}{"name": name})
}

func (c *HTTPClient) GetRoot(ctx context.Context, id string) (*types.Root, error) {
	var resp response
	if err := c.call(ctx, "getRootById", map[string]interface{}{"root_id": id}, &resp); err != nil {
		return nil, err
	}
	raw, err := resp.one("root")
	if err != nil {
		return nil, fmt.Errorf("getRootById %s: %w", id, ErrNotFound)
	}
	var rec struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Name == "" {
		return nil, fmt.Errorf("getRootById: %w: root.name", ErrMissingField)
	}
	return &types.Root{ID: id, Name: rec.Name}, nil
}

func (c *HTTPClient) CreateFolder(ctx context.Context, parent types.Parent, name string) (string, error) {
	if parent.IsRoot {
		return c.createID(ctx, "createSuperFolder", "folder", map[string]interface{}{
			"name":    name,
			"root_id": parent.ID,
		})
	}
	return c.createID(ctx, "createSubFolder", "subfolder", map[string]interface{}{
		"name":      name,
		"folder_id": parent.ID,
	})
}

func (c *HTTPClient) CreateFile(ctx context.Context, parent types.Parent, file *types.File) (string, error) {
	body := map[string]interface{}{
		"name":         file.Name,
		"extension":    file.Extension,
		"text":         file.Text,
		"extracted_at": file.ExtractedAt.UTC().Format(time.RFC3339Nano),
	}
	if parent.IsRoot {
		body["root_id"] = parent.ID
		return c.createID(ctx, "createSuperFile", "file", body)
	}
	body["folder_id"] = parent.ID
	return c.createID(ctx, "createFile", "file", body)
}

func (c *HTTPClient) UpdateFile(ctx context.Context, id, text string, extractedAt time.Time) error {
	return c.call(ctx, "updateFile", map[string]interface{}{
		"file_id":      id,
		"text":         text,
		"extracted_at": extractedAt.UTC().Format(time.RFC3339Nano),
	}, nil)
}

func (c *HTTPClient) ListFolders(ctx context.Context, parent types.Parent) ([]types.FolderRef, error) {
	endpoint, key, body := "getSubFolders", "subfolders", map[string]interface{}{"folder_id": parent.ID}
	if parent.IsRoot {
		endpoint, key, body = "getRootFolders", "folders", map[string]interface{}{"root_id": parent.ID}
	}

	var resp response
	if err := c.call(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	var recs []struct {
		ID   recordID `json:"id"`
		Name string   `json:"name"`
	}
	if err := resp.many(key, &recs); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	folders := make([]types.FolderRef, 0, len(recs))
	for _, r := range recs {
		if r.ID == "" || r.Name == "" {
			return nil, fmt.Errorf("%s: %w: folder id/name", endpoint, ErrMissingField)
		}
		folders = append(folders, types.FolderRef{ID: string(r.ID), Name: r.Name})
	}
	return folders, nil
}

func (c *HTTPClient) ListFiles(ctx context.Context, parent types.Parent) ([]types.FileRef, error) {
	endpoint, body := "getFolderFiles", map[string]interface{}{"folder_id": parent.ID}
	if parent.IsRoot {
		endpoint, body = "getRootFiles", map[string]interface{}{"root_id": parent.ID}
	}

	var resp response
	if err := c.call(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	var recs []struct {
		ID          recordID `json:"id"`
		Name        string   `json:"name"`
		ExtractedAt string   `json:"extracted_at"`
	}
	if err := resp.many("files", &recs); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	files := make([]types.FileRef, 0, len(recs))
	for _, r := range recs {
		if r.ID == "" || r.Name == "" {
			return nil, fmt.Errorf("%s: %w: file id/name", endpoint, ErrMissingField)
		}
		// Unparsable timestamps stay zero, which makes the file look stale
		extractedAt, _ := time.Parse(time.RFC3339Nano, r.ExtractedAt)
		files = append(files, types.FileRef{ID: string(r.ID), Name: r.Name, ExtractedAt: extractedAt})
	}
	return files, nil
}

func (c *HTTPClient) DeleteFolder(ctx context.Context, id string) error {
	return c.call(ctx, "deleteFolder", map[string]interface{}{"folder_id": id}, nil)
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id string) error {
	return c.call(ctx, "deleteFile", map[string]interface{}{"file_id": id}, nil)
}

func (c *HTTPClient) CreateEntity(ctx context.Context, parentID string, entity *types.Entity) (string, error) {
	body := map[string]interface{}{
		"entity_type": entity.Kind,
		"text":        entity.Text,
		"start_byte":  entity.StartByte,
		"end_byte":    entity.EndByte,
		"order":       entity.Order,
	}
	if entity.IsSuper {
		body["file_id"] = parentID
		return c.createID(ctx, "createSuperEntity", "entity", body)
	}
	body["entity_id"] = parentID
	return c.createID(ctx, "createSubEntity", "entity", body)
}

func (c *HTTPClient) ListEntities(ctx context.Context, parentID string, super bool) ([]types.EntityRef, error) {
	endpoint, body := "getSubEntities", map[string]interface{}{"entity_id": parentID}
	if super {
		endpoint, body = "getFileEntities", map[string]interface{}{"file_id": parentID}
	}

	var resp response
	if err := c.call(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	var recs []struct {
		ID    recordID `json:"id"`
		Kind  string   `json:"entity_type"`
		Order int      `json:"order"`
	}
	if err := resp.many("entities", &recs); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	entities := make([]types.EntityRef, 0, len(recs))
	for _, r := range recs {
		if r.ID == "" {
			return nil, fmt.Errorf("%s: %w: entity id", endpoint, ErrMissingField)
		}
		entities = append(entities, types.EntityRef{ID: string(r.ID), Kind: r.Kind, Order: r.Order})
	}
	return entities, nil
}

func (c *HTTPClient) DeleteEntity(ctx context.Context, id string, super bool) error {
	if super {
		return c.call(ctx, "deleteSuperEntity", map[string]interface{}{"entity_id": id}, nil)
	}
	return c.call(ctx, "deleteSubEntity", map[string]interface{}{"entity_id": id}, nil)
}

// AttachEmbedding posts the vector to embedSuperEntity. The service keeps the
// latest vector per call; chunkIndex is only meaningful to local backends.
func (c *HTTPClient) AttachEmbedding(ctx context.Context, entityID string, chunkIndex int, vector []float32) error {
	return c.call(ctx, "embedSuperEntity", map[string]interface{}{
		"entity_id": entityID,
		"vector":    vector,
	}, nil)
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// String identifies the backend in logs
func (c *HTTPClient) String() string {
	return "http(" + c.address + ")"
}
