package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// SQLiteIndex implements Index on an embedded SQLite database.
// It stands in for the remote service in offline runs and tests.
type SQLiteIndex struct {
	db *sql.DB
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteIndex opens (or creates) the index database at dbPath
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) String() string {
	return "sqlite"
}

func (s *SQLiteIndex) querier() querier {
	return s.db
}

func newID() string {
	return uuid.NewString()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// mapDeleteError turns foreign key violations into ErrHasChildren
func mapDeleteError(what, id string, err error) error {
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return fmt.Errorf("delete %s %s: %w", what, id, ErrHasChildren)
	}
	return fmt.Errorf("delete %s %s: %w", what, id, err)
}

func deleteOne(ctx context.Context, q querier, what, query, id string, args ...interface{}) error {
	res, err := q.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return mapDeleteError(what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// Root operations

func (s *SQLiteIndex) CreateRoot(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", types.ErrEmptyName
	}
	id := newID()
	if _, err := s.querier().ExecContext(ctx, "INSERT INTO roots (id, name) VALUES (?, ?)", id, name); err != nil {
		return "", fmt.Errorf("failed to create root: %w", err)
	}
	return id, nil
}

func (s *SQLiteIndex) GetRoot(ctx context.Context, id string) (*types.Root, error) {
	root := &types.Root{}
	err := s.querier().QueryRowContext(ctx, "SELECT id, name FROM roots WHERE id = ?", id).Scan(&root.ID, &root.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("root %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get root: %w", err)
	}
	return root, nil
}

// parentColumns returns the column values for a folder/file parent reference
func parentColumns(parent types.Parent) (rootID, folderID interface{}) {
	if parent.IsRoot {
		return parent.ID, nil
	}
	return nil, parent.ID
}

// Folder operations

func (s *SQLiteIndex) CreateFolder(ctx context.Context, parent types.Parent, name string) (string, error) {
	if parent.ID == "" {
		return "", types.ErrMissingParent
	}
	if name == "" {
		return "", types.ErrEmptyName
	}
	rootID, folderID := parentColumns(parent)
	id := newID()
	_, err := s.querier().ExecContext(ctx, `
		INSERT INTO folders (id, name, root_id, parent_folder_id, is_super)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, rootID, folderID, boolInt(parent.IsRoot))
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return id, nil
}

func (s *SQLiteIndex) ListFolders(ctx context.Context, parent types.Parent) ([]types.FolderRef, error) {
	query := "SELECT id, name FROM folders WHERE parent_folder_id = ? ORDER BY name"
	if parent.IsRoot {
		query = "SELECT id, name FROM folders WHERE root_id = ? ORDER BY name"
	}
	rows, err := s.querier().QueryContext(ctx, query, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var folders []types.FolderRef
	for rows.Next() {
		var f types.FolderRef
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *SQLiteIndex) DeleteFolder(ctx context.Context, id string) error {
	return deleteOne(ctx, s.querier(), "folder", "DELETE FROM folders WHERE id = ?", id)
}

// File operations

func (s *SQLiteIndex) CreateFile(ctx context.Context, parent types.Parent, file *types.File) (string, error) {
	if parent.ID == "" {
		return "", types.ErrMissingParent
	}
	if err := file.Validate(); err != nil {
		return "", err
	}
	rootID, folderID := parentColumns(parent)
	id := newID()
	_, err := s.querier().ExecContext(ctx, `
		INSERT INTO files (id, name, extension, text, extracted_at, root_id, folder_id, is_super)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, file.Name, file.Extension, file.Text, formatTime(file.ExtractedAt), rootID, folderID, boolInt(parent.IsRoot))
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", file.Name, err)
	}
	return id, nil
}

func (s *SQLiteIndex) UpdateFile(ctx context.Context, id, text string, extractedAt time.Time) error {
	res, err := s.querier().ExecContext(ctx,
		"UPDATE files SET text = ?, extracted_at = ? WHERE id = ?",
		text, formatTime(extractedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteIndex) ListFiles(ctx context.Context, parent types.Parent) ([]types.FileRef, error) {
	query := "SELECT id, name, extracted_at FROM files WHERE folder_id = ? ORDER BY name"
	if parent.IsRoot {
		query = "SELECT id, name, extracted_at FROM files WHERE root_id = ? ORDER BY name"
	}
	rows, err := s.querier().QueryContext(ctx, query, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []types.FileRef
	for rows.Next() {
		var f types.FileRef
		var extractedAt string
		if err := rows.Scan(&f.ID, &f.Name, &extractedAt); err != nil {
			return nil, err
		}
		f.ExtractedAt, _ = time.Parse(time.RFC3339Nano, extractedAt)
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFile returns a file record with its text
func (s *SQLiteIndex) GetFile(ctx context.Context, id string) (*types.File, error) {
	f := &types.File{ID: id}
	var extractedAt string
	var isSuper int
	err := s.querier().QueryRowContext(ctx,
		"SELECT name, extension, text, extracted_at, is_super FROM files WHERE id = ?", id,
	).Scan(&f.Name, &f.Extension, &f.Text, &extractedAt, &isSuper)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	f.ExtractedAt, _ = time.Parse(time.RFC3339Nano, extractedAt)
	f.IsSuper = isSuper == 1
	return f, nil
}

func (s *SQLiteIndex) DeleteFile(ctx context.Context, id string) error {
	return deleteOne(ctx, s.querier(), "file", "DELETE FROM files WHERE id = ?", id)
}

// Entity operations

func (s *SQLiteIndex) CreateEntity(ctx context.Context, parentID string, entity *types.Entity) (string, error) {
	if parentID == "" {
		return "", types.ErrMissingParent
	}
	if err := entity.Validate(); err != nil {
		return "", err
	}

	var fileID, parentEntityID interface{}
	if entity.IsSuper {
		fileID = parentID
	} else {
		parentEntityID = parentID
	}

	id := newID()
	_, err := s.querier().ExecContext(ctx, `
		INSERT INTO entities (id, file_id, parent_entity_id, is_super, entity_type, start_byte, end_byte, ord, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, fileID, parentEntityID, boolInt(entity.IsSuper), entity.Kind,
		entity.StartByte, entity.EndByte, entity.Order, entity.Text)
	if err != nil {
		return "", fmt.Errorf("failed to create entity: %w", err)
	}
	return id, nil
}

func (s *SQLiteIndex) ListEntities(ctx context.Context, parentID string, super bool) ([]types.EntityRef, error) {
	query := "SELECT id, entity_type, ord FROM entities WHERE parent_entity_id = ? ORDER BY ord"
	if super {
		query = "SELECT id, entity_type, ord FROM entities WHERE file_id = ? ORDER BY ord"
	}
	rows, err := s.querier().QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []types.EntityRef
	for rows.Next() {
		var e types.EntityRef
		if err := rows.Scan(&e.ID, &e.Kind, &e.Order); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *SQLiteIndex) DeleteEntity(ctx context.Context, id string, super bool) error {
	return deleteOne(ctx, s.querier(), "entity", "DELETE FROM entities WHERE id = ? AND is_super = ?", id, boolInt(super))
}

// Embedding operations

func (s *SQLiteIndex) AttachEmbedding(ctx context.Context, entityID string, chunkIndex int, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("attach embedding: %w", types.ErrEmptyContent)
	}
	_, err := s.querier().ExecContext(ctx, `
		INSERT INTO embeddings (entity_id, chunk_index, vector, dimension, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, chunk_index) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`, entityID, chunkIndex, serializeVector(vector), len(vector), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to attach embedding: %w", err)
	}
	return nil
}

// Embeddings returns the stored vectors of an entity ordered by chunk index
func (s *SQLiteIndex) Embeddings(ctx context.Context, entityID string) ([][]float32, error) {
	rows, err := s.querier().QueryContext(ctx,
		"SELECT vector FROM embeddings WHERE entity_id = ? ORDER BY chunk_index", entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vectors [][]float32
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		vectors = append(vectors, deserializeVector(blob))
	}
	return vectors, rows.Err()
}

// Counts summarizes the records stored in the index
type Counts struct {
	Roots      int
	Folders    int
	Files      int
	Entities   int
	Embeddings int
}

// Counts returns record totals across all roots
func (s *SQLiteIndex) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	err := s.querier().QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM roots),
			(SELECT COUNT(*) FROM folders),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM embeddings)
	`).Scan(&c.Roots, &c.Folders, &c.Files, &c.Entities, &c.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return c, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
