package types

import "fmt"

// Entity is a syntax node retained by the retention policy
type Entity struct {
	ID        string
	Kind      string
	StartByte int
	EndByte   int
	Order     int // 1-based position among siblings
	Text      string
	IsSuper   bool
	Children  []*Entity
}

// Validate checks span and order
func (e *Entity) Validate() error {
	if e.StartByte < 0 || e.StartByte > e.EndByte {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidSpan, e.StartByte, e.EndByte)
	}
	if e.Order < 1 {
		return ErrInvalidOrder
	}
	return nil
}

// Count returns the number of entities in the subtree rooted at e, e included
func (e *Entity) Count() int {
	n := 1
	for _, c := range e.Children {
		n += c.Count()
	}
	return n
}

// EntityRef is an entity as listed by the index
type EntityRef struct {
	ID    string
	Kind  string
	Order int
}

// EmbeddingJob is one chunk of a super entity waiting for a vector
type EmbeddingJob struct {
	EntityID   string
	ChunkIndex int
	Text       string
}
