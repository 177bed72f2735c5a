package pending

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/fault"
)

func TestCompleteBeforeAwait(t *testing.T) {
	tbl := New(nil)
	e, err := tbl.Register("a")
	require.NoError(t, err)

	assert.True(t, tbl.Complete("a", []catalog.Store{{Name: "A"}}))
	stores, err := tbl.Await(context.Background(), e, time.Second)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "A", stores[0].Name)
	assert.Equal(t, 0, tbl.Len())
}

func TestCompleteWhileWaiting(t *testing.T) {
	tbl := New(nil)
	e, err := tbl.Register("b")
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		tbl.Complete("b", []catalog.Store{})
	}()

	stores, err := tbl.Await(context.Background(), e, time.Second)
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestFirstCompletionWins(t *testing.T) {
	tbl := New(nil)
	e, _ := tbl.Register("c")

	assert.True(t, tbl.Complete("c", []catalog.Store{{Name: "first"}}))
	assert.False(t, tbl.Complete("c", []catalog.Store{{Name: "second"}}))

	stores, err := tbl.Await(context.Background(), e, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", stores[0].Name)
}

func TestAwaitTimeout(t *testing.T) {
	tbl := New(nil)
	e, _ := tbl.Register("d")

	_, err := tbl.Await(context.Background(), e, 20*time.Millisecond)
	assert.ErrorIs(t, err, fault.ErrTimeout)
	assert.Equal(t, 0, tbl.Len())

	// late delivery is dropped
	assert.False(t, tbl.Complete("d", nil))
}

func TestAwaitContextCanceled(t *testing.T) {
	tbl := New(nil)
	e, _ := tbl.Register("e")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tbl.Await(ctx, e, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tbl.Len())
}

func TestRegisterDuplicate(t *testing.T) {
	tbl := New(nil)
	_, err := tbl.Register("f")
	require.NoError(t, err)
	_, err = tbl.Register("f")
	assert.ErrorIs(t, err, fault.ErrAlreadyExists)
}

func TestCancelAndPending(t *testing.T) {
	tbl := New(nil)
	old, _ := tbl.Register("old")
	time.Sleep(5 * time.Millisecond)
	_, _ = tbl.Register("new")

	infos := tbl.Pending()
	require.Len(t, infos, 2)
	assert.Equal(t, "old", infos[0].CorrelationID)

	tbl.Cancel(old)
	assert.Equal(t, 1, tbl.Len())
	assert.False(t, tbl.Complete("old", nil))
}

func TestConcurrentCompleteAndTimeout(t *testing.T) {
	tbl := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("id-%d", i)
		e, err := tbl.Register(id)
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl.Complete(id, []catalog.Store{{Name: id}})
		}()
		go func() {
			defer wg.Done()
			stores, err := tbl.Await(context.Background(), e, time.Millisecond)
			if err == nil {
				assert.Equal(t, id, stores[0].Name)
			} else {
				assert.ErrorIs(t, err, fault.ErrTimeout)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, tbl.Len())
}
