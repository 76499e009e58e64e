package types

import "time"

// Root is one indexed directory tree
type Root struct {
	ID   string
	Name string
}

// Parent identifies where a folder or file is attached: the root itself or a folder
type Parent struct {
	ID     string
	IsRoot bool
}

// RootParent returns the parent reference for direct children of a root
func RootParent(id string) Parent {
	return Parent{ID: id, IsRoot: true}
}

// FolderParent returns the parent reference for children of a folder
func FolderParent(id string) Parent {
	return Parent{ID: id}
}

// File is a file record with its full text
type File struct {
	ID          string
	Name        string
	Extension   string
	Text        string
	ExtractedAt time.Time
	IsSuper     bool
}

// Validate checks required fields
func (f *File) Validate() error {
	if f.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// FolderRef is a folder as listed by the index
type FolderRef struct {
	ID   string
	Name string
}

// FileRef is a file as listed by the index
type FileRef struct {
	ID          string
	Name        string
	ExtractedAt time.Time
}
