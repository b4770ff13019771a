package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsvc/domain"
	"childsvc/domain/child"
)

func TestStore_InsertAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()

	a, err := s.Insert(ctx, child.New("a"))
	require.NoError(t, err)
	b, err := s.Insert(ctx, &child.Child{ID: 77, Name: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID, "已有标识应被忽略")
	assert.Equal(t, 2, s.Len())
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()

	created, err := s.Insert(ctx, child.New("origin"))
	require.NoError(t, err)
	created.Name = "mutated"

	got, found, err := s.Fetch(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "origin", got.Name)

	got.Name = "mutated again"
	again, _, _ := s.Fetch(ctx, created.ID)
	assert.Equal(t, "origin", again.Name)
}

func TestStore_FetchAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()

	all, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	for _, name := range []string{"x", "y", "z"} {
		_, err := s.Insert(ctx, child.New(name))
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(ctx, 2))

	all, err = s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "x", all[0].Name)
	assert.Equal(t, "z", all[1].Name)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()

	_, err := s.Update(ctx, &child.Child{ID: 5, Name: "ghost"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	created, _ := s.Insert(ctx, child.New("before"))
	_, err = s.Update(ctx, &child.Child{ID: created.ID, Name: "after"})
	require.NoError(t, err)

	got, _, _ := s.Fetch(ctx, created.ID)
	assert.Equal(t, "after", got.Name)

	require.NoError(t, s.Delete(ctx, created.ID))
	require.NoError(t, s.Delete(ctx, created.ID), "重复删除为空操作")
	_, found, err := s.Fetch(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore[*child.Child]()

	_, err := s.Insert(ctx, child.New("a"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.FetchAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_DeleteKeepsSequence(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()
	first, _ := s.Insert(ctx, child.New("a"))
	require.NoError(t, s.Delete(ctx, first.ID))

	assert.Equal(t, 0, s.Len())
	next, err := s.Insert(ctx, child.New("b"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestStore_ConcurrentInsertsAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore[*child.Child]()

	const n = 100
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.Insert(ctx, child.New("c"))
			if err == nil {
				ids <- c.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "重复标识 %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
