package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/fault"
)

func testStore(name string) catalog.Store {
	s := catalog.Store{
		Name:         name,
		FoodCategory: "Greek",
		Products:     []catalog.Product{catalog.NewProduct("gyros", "wrap", "", 100, 4)},
	}
	s.RecomputePriceCategory()
	return s
}

// TestMemoryStore tests the in-memory container
func TestMemoryStore(t *testing.T) {
	t.Run("new store is empty", func(t *testing.T) {
		store := NewMemoryStore()

		assert.Empty(t, store.Snapshot())
		_, err := store.Get("nonexistent")
		assert.ErrorIs(t, err, fault.ErrNotFound)
	})

	t.Run("insert and get", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Insert(testStore("Olive")))

		got, err := store.Get("Olive")
		require.NoError(t, err)
		assert.Equal(t, "Olive", got.Name)
	})

	t.Run("duplicate insert is rejected", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Insert(testStore("Olive")))

		err := store.Insert(testStore("Olive"))
		assert.ErrorIs(t, err, fault.ErrAlreadyExists)
		assert.Len(t, store.Snapshot(), 1)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Insert(testStore("Olive")))

		got, _ := store.Get("Olive")
		got.Products[0].AvailableAmount = 0

		again, _ := store.Get("Olive")
		assert.Equal(t, 100, again.Products[0].AvailableAmount)
	})

	t.Run("update on missing store", func(t *testing.T) {
		store := NewMemoryStore()
		err := store.Update("nope", func(*catalog.Store) error { return nil })
		assert.ErrorIs(t, err, fault.ErrNotFound)
	})

	t.Run("update propagates callback error", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Insert(testStore("Olive")))

		boom := errors.New("boom")
		err := store.Update("Olive", func(*catalog.Store) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("stats", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Insert(testStore("Olive")))
		require.NoError(t, store.Insert(testStore("Pita")))

		assert.Equal(t, StoreStats{Stores: 2, Products: 2}, store.Stats())
	})
}

// TestMemoryStoreConcurrentPurchases checks that per-store locking keeps
// purchases on the same store serialized.
func TestMemoryStoreConcurrentPurchases(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Insert(testStore("Olive")))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(testStore(fmt.Sprintf("other-%d", i))))
	}

	var wg sync.WaitGroup
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update("Olive", func(s *catalog.Store) error {
				_, err := s.Purchase("gyros", 1)
				return err
			})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	got, err := store.Get("Olive")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Products[0].AvailableAmount)
	assert.Equal(t, 100, got.Products[0].UnitsSold)
	assert.Equal(t, 400.0, got.TotalSales)
}
