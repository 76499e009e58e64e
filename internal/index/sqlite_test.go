package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelixDB/codebase-index/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteIndex {
	// Use in-memory database for testing
	idx, err := NewSQLiteIndex(":memory:")
	require.NoError(t, err)
	require.NotNil(t, idx)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestNewSQLiteIndex(t *testing.T) {
	idx := setupTestDB(t)

	version, err := SchemaVersion(context.Background(), idx.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, idx.db))
	version, err := SchemaVersion(ctx, idx.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestRollbackMigration(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, idx.db))
	version, err := SchemaVersion(ctx, idx.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	require.NoError(t, ApplyMigrations(ctx, idx.db))
	version, err = SchemaVersion(ctx, idx.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestCreateAndGetRoot(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	id, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	root, err := idx.GetRoot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "project", root.Name)

	_, err = idx.GetRoot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = idx.CreateRoot(ctx, "")
	assert.ErrorIs(t, err, types.ErrEmptyName)
}

func TestFoldersAndFiles(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	rootID, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	root := types.RootParent(rootID)

	srcID, err := idx.CreateFolder(ctx, root, "src")
	require.NoError(t, err)
	libID, err := idx.CreateFolder(ctx, types.FolderParent(srcID), "lib")
	require.NoError(t, err)

	extractedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	readmeID, err := idx.CreateFile(ctx, root, &types.File{Name: "README.md", Extension: "md", Text: "# hi", ExtractedAt: extractedAt})
	require.NoError(t, err)
	_, err = idx.CreateFile(ctx, types.FolderParent(srcID), &types.File{Name: "a.py", Extension: "py", Text: "x = 1", ExtractedAt: extractedAt})
	require.NoError(t, err)

	folders, err := idx.ListFolders(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []types.FolderRef{{ID: srcID, Name: "src"}}, folders)

	subfolders, err := idx.ListFolders(ctx, types.FolderParent(srcID))
	require.NoError(t, err)
	assert.Equal(t, []types.FolderRef{{ID: libID, Name: "lib"}}, subfolders)

	rootFiles, err := idx.ListFiles(ctx, root)
	require.NoError(t, err)
	require.Len(t, rootFiles, 1)
	assert.Equal(t, "README.md", rootFiles[0].Name)
	assert.True(t, rootFiles[0].ExtractedAt.Equal(extractedAt))

	srcFiles, err := idx.ListFiles(ctx, types.FolderParent(srcID))
	require.NoError(t, err)
	require.Len(t, srcFiles, 1)
	assert.Equal(t, "a.py", srcFiles[0].Name)

	readme, err := idx.GetFile(ctx, readmeID)
	require.NoError(t, err)
	assert.True(t, readme.IsSuper)
	assert.Equal(t, "# hi", readme.Text)

	later := extractedAt.Add(time.Hour)
	require.NoError(t, idx.UpdateFile(ctx, readmeID, "# updated", later))
	readme, err = idx.GetFile(ctx, readmeID)
	require.NoError(t, err)
	assert.Equal(t, "# updated", readme.Text)
	assert.True(t, readme.ExtractedAt.Equal(later))

	assert.ErrorIs(t, idx.UpdateFile(ctx, "missing", "", later), ErrNotFound)
}

func TestCreateFolder_Validation(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	_, err := idx.CreateFolder(ctx, types.RootParent(""), "src")
	assert.ErrorIs(t, err, types.ErrMissingParent)

	rootID, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	_, err = idx.CreateFolder(ctx, types.RootParent(rootID), "")
	assert.ErrorIs(t, err, types.ErrEmptyName)

	_, err = idx.CreateFolder(ctx, types.RootParent("no-such-root"), "src")
	assert.Error(t, err, "foreign key must reject unknown parents")
}

func TestEntities(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	rootID, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	fileID, err := idx.CreateFile(ctx, types.RootParent(rootID), &types.File{Name: "a.py", Extension: "py", ExtractedAt: time.Now()})
	require.NoError(t, err)

	superID, err := idx.CreateEntity(ctx, fileID, &types.Entity{Kind: "class_definition", StartByte: 0, EndByte: 10, Order: 1, Text: "class A: 1", IsSuper: true})
	require.NoError(t, err)
	subID, err := idx.CreateEntity(ctx, superID, &types.Entity{Kind: "function_definition", StartByte: 2, EndByte: 8, Order: 1, Text: "def f()"})
	require.NoError(t, err)

	supers, err := idx.ListEntities(ctx, fileID, true)
	require.NoError(t, err)
	assert.Equal(t, []types.EntityRef{{ID: superID, Kind: "class_definition", Order: 1}}, supers)

	subs, err := idx.ListEntities(ctx, superID, false)
	require.NoError(t, err)
	assert.Equal(t, []types.EntityRef{{ID: subID, Kind: "function_definition", Order: 1}}, subs)

	_, err = idx.CreateEntity(ctx, fileID, &types.Entity{Kind: "x", StartByte: 5, EndByte: 1, Order: 1, IsSuper: true})
	assert.ErrorIs(t, err, types.ErrInvalidSpan)
	_, err = idx.CreateEntity(ctx, fileID, &types.Entity{Kind: "x", StartByte: 0, EndByte: 1, Order: 0, IsSuper: true})
	assert.ErrorIs(t, err, types.ErrInvalidOrder)
}

func TestDelete_RequiresChildrenGone(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	rootID, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	folderID, err := idx.CreateFolder(ctx, types.RootParent(rootID), "src")
	require.NoError(t, err)
	fileID, err := idx.CreateFile(ctx, types.FolderParent(folderID), &types.File{Name: "a.py", Extension: "py", ExtractedAt: time.Now()})
	require.NoError(t, err)
	superID, err := idx.CreateEntity(ctx, fileID, &types.Entity{Kind: "module", EndByte: 1, Order: 1, IsSuper: true})
	require.NoError(t, err)
	subID, err := idx.CreateEntity(ctx, superID, &types.Entity{Kind: "expr", EndByte: 1, Order: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, idx.DeleteFolder(ctx, folderID), ErrHasChildren)
	assert.ErrorIs(t, idx.DeleteFile(ctx, fileID), ErrHasChildren)
	assert.ErrorIs(t, idx.DeleteEntity(ctx, superID, true), ErrHasChildren)

	// Wrong super flag does not match the record
	assert.ErrorIs(t, idx.DeleteEntity(ctx, subID, true), ErrNotFound)

	require.NoError(t, idx.DeleteEntity(ctx, subID, false))
	require.NoError(t, idx.DeleteEntity(ctx, superID, true))
	require.NoError(t, idx.DeleteFile(ctx, fileID))
	require.NoError(t, idx.DeleteFolder(ctx, folderID))

	assert.ErrorIs(t, idx.DeleteFolder(ctx, folderID), ErrNotFound)

	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Roots: 1}, counts)
}

func TestAttachEmbedding(t *testing.T) {
	idx := setupTestDB(t)
	ctx := context.Background()

	rootID, err := idx.CreateRoot(ctx, "project")
	require.NoError(t, err)
	fileID, err := idx.CreateFile(ctx, types.RootParent(rootID), &types.File{Name: "a.go", Extension: "go", ExtractedAt: time.Now()})
	require.NoError(t, err)
	entityID, err := idx.CreateEntity(ctx, fileID, &types.Entity{Kind: "func_decl", EndByte: 4, Order: 1, IsSuper: true})
	require.NoError(t, err)

	require.NoError(t, idx.AttachEmbedding(ctx, entityID, 1, []float32{0.5, 0.5}))
	require.NoError(t, idx.AttachEmbedding(ctx, entityID, 0, []float32{1, 2, 3}))
	// Last write wins per chunk
	require.NoError(t, idx.AttachEmbedding(ctx, entityID, 0, []float32{4, 5, 6}))

	vectors, err := idx.Embeddings(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 5, 6}, {0.5, 0.5}}, vectors)

	assert.ErrorIs(t, idx.AttachEmbedding(ctx, entityID, 0, nil), types.ErrEmptyContent)
	assert.Error(t, idx.AttachEmbedding(ctx, "no-such-entity", 0, []float32{1}))

	// Vectors go with their entity
	require.NoError(t, idx.DeleteEntity(ctx, entityID, true))
	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Embeddings)
}

func TestSerializeVector(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"empty", []float32{}},
		{"single", []float32{1.5}},
		{"mixed", []float32{-1, 0, 3.25, 1e-7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := serializeVector(tt.vector)
			assert.Len(t, blob, len(tt.vector)*4)
			assert.Equal(t, tt.vector, deserializeVector(blob))
		})
	}
}
