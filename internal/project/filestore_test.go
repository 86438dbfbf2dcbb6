package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	return s, path
}

func TestFileStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "brave-eagle-4821.example")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "brave-eagle-4821.example", p.Domain)
	assert.Empty(t, p.Versions)
	assert.Empty(t, p.Assets)
	assert.Nil(t, p.DeployedIndex)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_CreateRequiresDomain(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Create(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

// Every acknowledged mutation must be readable by a fresh store opened
// over the same file: success implies durable, full stop. This is the
// deliberate O(total data) trade-off of the design; do not replace it
// with batched or deferred writes without changing the contract.
func TestFileStore_MutationsAreDurable(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "calm-otter-1234.example")
	require.NoError(t, err)

	idx := 0
	_, err = s.Update(ctx, p.ID, Patch{
		Versions:      []HtmlVersion{{ID: "v1", Content: "<html>A</html>", CreatedAt: time.Now()}},
		DeployedIndex: &idx,
	})
	require.NoError(t, err)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "<html>A</html>", got.Versions[0].Content)
	require.NotNil(t, got.DeployedIndex)
	assert.Equal(t, 0, *got.DeployedIndex)

	ok, err := s.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	reopened, err = OpenFileStore(path)
	require.NoError(t, err)
	_, err = reopened.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_UpdateUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Update(context.Background(), "missing", Patch{Assets: []Asset{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_DeleteReportsExistence(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "tidy-reef-2222.example")
	require.NoError(t, err)

	ok, err := s.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Deleting an id also drops its mutex; any later mutation, including one
// that raced the delete for the old lock, must observe ErrNotFound.
func TestFileStore_MutateAfterDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "tidy-reef-2222.example")
	require.NoError(t, err)

	ok, err := s.Delete(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Mutate(ctx, p.ID, func(rec *Project) error {
		rec.Versions = append(rec.Versions, HtmlVersion{ID: "x"})
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(ctx, p.ID, Patch{Assets: []Asset{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_ListPagination(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := s.Create(ctx, fmt.Sprintf("host-%d.example", i))
		require.NoError(t, err)
		ids = append(ids, p.ID)
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	t.Run("descending default", func(t *testing.T) {
		items, total, err := s.List(ctx, 1, 2, SortCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, items, 2)
		assert.Equal(t, ids[4], items[0].ID)
		assert.Equal(t, ids[3], items[1].ID)
	})

	t.Run("ascending", func(t *testing.T) {
		items, _, err := s.List(ctx, 1, 2, SortCreatedAsc)
		require.NoError(t, err)
		assert.Equal(t, ids[0], items[0].ID)
	})

	t.Run("last partial page", func(t *testing.T) {
		items, total, err := s.List(ctx, 3, 2, SortCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, items, 1)
		assert.Equal(t, ids[0], items[0].ID)
	})

	t.Run("page past the end", func(t *testing.T) {
		items, total, err := s.List(ctx, 9, 2, SortCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, items)
	})
}

func TestFileStore_ReadsAreCopies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "warm-dune-3333.example")
	require.NoError(t, err)

	_, err = s.Update(ctx, p.ID, Patch{
		Versions: []HtmlVersion{{ID: "v1", Content: "original"}},
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Versions[0].Content = "tampered"

	again, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Versions[0].Content)
}

// Mutations on the same project are serialized per id; a storm of
// concurrent appends must lose nothing.
func TestFileStore_ConcurrentMutatePerID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "rapid-crane-4444.example")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Mutate(ctx, p.ID, func(rec *Project) error {
				rec.Versions = append(rec.Versions, HtmlVersion{ID: fmt.Sprintf("v%d", i)})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Versions, n)
}

func TestFileStore_MutateErrorDoesNotPersist(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "quiet-pine-5555.example")
	require.NoError(t, err)

	_, err = s.Mutate(ctx, p.ID, func(rec *Project) error {
		rec.Versions = append(rec.Versions, HtmlVersion{ID: "v1"})
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Versions)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, err = reopened.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Versions)
}

func TestOpenFileStore_DefaultsOldRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	// A record written before assets/versions existed as fields.
	old := `{"projects":{"p1":{"id":"p1","created_at":"2024-01-01T00:00:00Z","domain":"old.example"}}}`
	require.NoError(t, os.WriteFile(path, []byte(old), 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	p, err := s.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, p.Versions)
	assert.NotNil(t, p.Assets)
}
