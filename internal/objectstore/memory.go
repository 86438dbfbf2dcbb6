package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store used in tests and local development.
// FailPut/FailGet/FailDelete/FailList, when set, make the matching
// operation fail so callers' partial-failure paths can be exercised.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject

	FailPut    func(key string) error
	FailGet    func(key string) error
	FailDelete func(key string) error
	FailList   func(prefix string) error
}

type memObject struct {
	body        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.FailPut != nil {
		if err := m.FailPut(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(body))
	copy(b, body)
	m.objects[key] = memObject{body: b, contentType: contentType}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if m.FailGet != nil {
		if err := m.FailGet(key); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	b := make([]byte, len(obj.body))
	copy(b, obj.body)
	return b, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if m.FailDelete != nil {
		if err := m.FailDelete(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) List(ctx context.Context, keyPrefix string) ([]string, error) {
	if m.FailList != nil {
		if err := m.FailList(keyPrefix); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, keyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ContentType returns the stored content type for a key, for assertions.
func (m *Memory) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].contentType
}

var _ Store = (*Memory)(nil)
