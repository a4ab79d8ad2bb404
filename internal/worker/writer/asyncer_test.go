package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordWriter struct {
	mu      sync.Mutex
	batches [][]int
	fail    bool
	closed  bool
}

func (w *recordWriter) BWrite(_ context.Context, batch []int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]int(nil), batch...))
	if w.fail {
		return errors.New("write failed")
	}
	return nil
}

func (w *recordWriter) Close() error {
	w.closed = true
	return nil
}

func (w *recordWriter) items() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var all []int
	for _, b := range w.batches {
		all = append(all, b...)
	}
	return all
}

func TestAsyncBatchWriter_FlushBySize(t *testing.T) {
	w := &recordWriter{}
	aw := NewAsyncBatchWriter[int](zap.NewNop(), w, 2, time.Hour, "test_size", 1)
	aw.Start(context.Background())

	for i := 0; i < 4; i++ {
		require.True(t, aw.Submit(i))
	}
	require.Eventually(t, func() bool { return len(w.items()) == 4 }, time.Second, 10*time.Millisecond)
	aw.Close()

	assert.Equal(t, []int{0, 1, 2, 3}, w.items())
	assert.True(t, w.closed)
}

func TestAsyncBatchWriter_FlushByInterval(t *testing.T) {
	flushed := make(chan []int, 1)
	w := BatchWriterFunc[int](func(_ context.Context, batch []int) error {
		flushed <- append([]int(nil), batch...)
		return nil
	})
	aw := NewAsyncBatchWriter[int](zap.NewNop(), w, 100, 20*time.Millisecond, "test_interval", 1)
	aw.Start(context.Background())
	defer aw.Close()

	aw.Submit(7)
	select {
	case batch := <-flushed:
		assert.Equal(t, []int{7}, batch)
	case <-time.After(time.Second):
		t.Fatal("batch was not flushed by interval")
	}
}

func TestAsyncBatchWriter_CloseFlushesPending(t *testing.T) {
	w := &recordWriter{fail: true}
	aw := NewAsyncBatchWriter[int](zap.NewNop(), w, 100, time.Hour, "test_close", 1)
	aw.Start(context.Background())

	aw.Submit(1)
	aw.Submit(2)
	aw.Close()
	aw.Close()

	assert.Equal(t, []int{1, 2}, w.items())
}
