// Package index defines the code index the ingestion pipeline writes to and
// its two backends.
//
// HTTPClient speaks to a running index service: every operation is a JSON POST
// to a named query endpoint (createRoot, createSuperFolder, getFileEntities and
// so on). SQLiteIndex keeps the same hierarchy in an embedded database:
//
//	root ─┬─ folder ─┬─ folder ...
//	      │          └─ file
//	      └─ file ── super entity ── sub entity ...
//
// Foreign keys in the SQLite schema do not cascade, so a record with children
// cannot be removed; callers delete bottom-up. Vectors are stored per
// (entity, chunk) and disappear with their entity.
//
// The SQLite driver is selected at build time:
//
//	go build ./...                                 // modernc.org/sqlite (pure Go)
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...  // github.com/mattn/go-sqlite3
package index
