package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps every project in one in-process map and rewrites the
// whole map to a single JSON file on every mutation. The write is synced
// before success is reported, so an acknowledged mutation survives a
// crash. That costs O(total data) per mutation, which is acceptable at
// this volume; callers rely on "returned success means durable", so do
// not batch or defer the write.
type FileStore struct {
	path string

	mu       sync.RWMutex
	projects map[string]*Project

	idlocks *idLocks
}

type storeFile struct {
	Projects map[string]*Project `json:"projects"`
}

// OpenFileStore rehydrates the store from path, creating an empty store
// if the file does not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		projects: make(map[string]*Project),
		idlocks:  newIDLocks(),
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode store file %s: %w", path, err)
	}
	if f.Projects != nil {
		s.projects = f.Projects
	}
	// Older files may predate some fields; default them rather than
	// carrying nils around.
	for _, p := range s.projects {
		if p.Versions == nil {
			p.Versions = []HtmlVersion{}
		}
		if p.Assets == nil {
			p.Assets = []Asset{}
		}
	}
	return s, nil
}

// persist writes the whole collection to disk and syncs it. Callers must
// hold s.mu (read lock is enough, map shape is not changed here).
func (s *FileStore) persist() error {
	b, err := json.MarshalIndent(storeFile{Projects: s.projects}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistenceFailed, err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersistenceFailed, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, domain string) (*Project, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain required", ErrValidation)
	}

	p := &Project{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Domain:    domain,
		Versions:  []HtmlVersion{},
		Assets:    []Asset{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	if err := s.persist(); err != nil {
		delete(s.projects, p.ID)
		return nil, err
	}
	return p.clone(), nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (s *FileStore) Update(ctx context.Context, id string, patch Patch) (*Project, error) {
	return s.Mutate(ctx, id, func(p *Project) error {
		patch.apply(p)
		return nil
	})
}

func (s *FileStore) Mutate(ctx context.Context, id string, fn func(*Project) error) (*Project, error) {
	l := s.idlocks.lock(id)
	defer l.Unlock()

	s.mu.RLock()
	cur, ok := s.projects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	next := cur.clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[id] = next
	if err := s.persist(); err != nil {
		s.projects[id] = cur
		return nil, err
	}
	return next.clone(), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	l := s.idlocks.lock(id)
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[id]
	if !ok {
		return false, nil
	}
	delete(s.projects, id)
	if err := s.persist(); err != nil {
		s.projects[id] = cur
		return false, err
	}
	s.idlocks.forget(id)
	return true, nil
}

func (s *FileStore) List(ctx context.Context, page, pageSize int, order SortOrder) ([]Project, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.RLock()
	all := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if order == SortCreatedAsc {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]Project, 0, end-start)
	for _, p := range all[start:end] {
		items = append(items, *p.clone())
	}
	return items, total, nil
}

// Path returns the backing file location, mainly for logs.
func (s *FileStore) Path() string { return filepath.Clean(s.path) }

func (p *Project) clone() *Project {
	c := *p
	c.Versions = make([]HtmlVersion, len(p.Versions))
	copy(c.Versions, p.Versions)
	c.Assets = make([]Asset, len(p.Assets))
	copy(c.Assets, p.Assets)
	if p.DeployedIndex != nil {
		i := *p.DeployedIndex
		c.DeployedIndex = &i
	}
	if p.Conversation != nil {
		c.Conversation = append(json.RawMessage(nil), p.Conversation...)
	}
	return &c
}
