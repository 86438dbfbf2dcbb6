package project

import (
	"context"
	"encoding/json"
	"sync"
)

// SortOrder controls List ordering over project creation time.
type SortOrder string

const (
	SortCreatedAsc  SortOrder = "created_asc"
	SortCreatedDesc SortOrder = "created_desc"
)

// Patch carries the fields an Update call wants to merge into a project.
// Nil fields are left untouched. DeployedIndex only ever moves to a
// concrete index; there is no operation that clears it.
type Patch struct {
	Versions      []HtmlVersion
	DeployedIndex *int
	Assets        []Asset
	Conversation  json.RawMessage
}

// Store is the durable keyed collection of Project records and the single
// point of truth for reads. Implementations serialize mutations per
// project id and acknowledge a mutation only after it is durable, so
// callers may treat every mutating call as slow and blocking.
type Store interface {
	Create(ctx context.Context, domain string) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, id string, patch Patch) (*Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, page, pageSize int, order SortOrder) ([]Project, int, error)

	// Mutate applies fn to the record under the per-id lock and persists
	// the result. fn returning an error aborts without persisting.
	Mutate(ctx context.Context, id string, fn func(*Project) error) (*Project, error)
}

func (p Patch) apply(rec *Project) {
	if p.Versions != nil {
		rec.Versions = p.Versions
	}
	if p.DeployedIndex != nil {
		rec.DeployedIndex = p.DeployedIndex
	}
	if p.Assets != nil {
		rec.Assets = p.Assets
	}
	if p.Conversation != nil {
		rec.Conversation = p.Conversation
	}
}

// idLocks hands out one mutex per project id so mutations on the same
// record cannot interleave while different projects stay fully concurrent.
type idLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIDLocks() *idLocks {
	return &idLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *idLocks) lock(id string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}

// forget drops a deleted id's mutex so the map does not grow forever.
// A goroutine already blocked on the old mutex and a later caller who
// allocates a fresh one can then hold "the" per-id lock at once, but the
// record is gone by that point and both observe ErrNotFound.
func (l *idLocks) forget(id string) {
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
}
