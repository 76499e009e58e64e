package index

import (
	"context"
	"errors"
	"time"

	"github.com/HelixDB/codebase-index/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrMissingField is returned when a response lacks an expected field such as an id
	ErrMissingField = errors.New("response missing expected field")
	// ErrRemoteStatus is returned for non-success responses from the index service
	ErrRemoteStatus = errors.New("index service error")
	// ErrHasChildren is returned when deleting a record that still owns children
	ErrHasChildren = errors.New("record still has children")
)

// Index is the code index the walker and updater write to.
// Create calls are not idempotent; every other call may be repeated safely.
type Index interface {
	// Root operations
	CreateRoot(ctx context.Context, name string) (string, error)
	GetRoot(ctx context.Context, id string) (*types.Root, error)

	// Folder and file operations. parent selects super (root) or sub (folder) endpoints.
	CreateFolder(ctx context.Context, parent types.Parent, name string) (string, error)
	CreateFile(ctx context.Context, parent types.Parent, file *types.File) (string, error)
	UpdateFile(ctx context.Context, id, text string, extractedAt time.Time) error
	ListFolders(ctx context.Context, parent types.Parent) ([]types.FolderRef, error)
	ListFiles(ctx context.Context, parent types.Parent) ([]types.FileRef, error)
	DeleteFolder(ctx context.Context, id string) error
	DeleteFile(ctx context.Context, id string) error

	// Entity operations. Super entities hang off a file, sub entities off an entity.
	CreateEntity(ctx context.Context, parentID string, entity *types.Entity) (string, error)
	ListEntities(ctx context.Context, parentID string, super bool) ([]types.EntityRef, error)
	DeleteEntity(ctx context.Context, id string, super bool) error

	// AttachEmbedding stores the vector of one chunk of an entity, replacing any previous one
	AttachEmbedding(ctx context.Context, entityID string, chunkIndex int, vector []float32) error

	Close() error
}
