package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingTransport counts Open/Close calls; Read/Write are unused by
// these tests.
type countingTransport struct {
	opens, closes int32
}

func (t *countingTransport) Open(context.Context) error { atomic.AddInt32(&t.opens, 1); return nil }
func (t *countingTransport) Read(p []byte) (int, error)  { return 0, nil }
func (t *countingTransport) Write(p []byte) (int, error) { return len(p), nil }
func (t *countingTransport) Close() error                { atomic.AddInt32(&t.closes, 1); return nil }

func TestPoolDedupesConcurrentGetForSameKey(t *testing.T) {
	p := NewPool()

	var dials int32
	start := make(chan struct{})
	open := func() (Transport, error) {
		atomic.AddInt32(&dials, 1)
		<-start // hold every racing Get in Do until all goroutines have entered
		return &countingTransport{}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]Transport, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := p.Get(context.Background(), "N4XYZ", open)
			require.NoError(t, err)
			results[i] = tr
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let all goroutines reach sf.Do before releasing
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, dials, "concurrent Get calls for the same key must share one dial")
	for i := 1; i < n; i++ {
		require.Same(t, results[0], results[i], "all callers must receive the same transport instance")
	}
}

func TestPoolGetIndependentForDifferentKeys(t *testing.T) {
	p := NewPool()
	var dials int32
	open := func() (Transport, error) {
		atomic.AddInt32(&dials, 1)
		return &countingTransport{}, nil
	}

	a, err := p.Get(context.Background(), "N4XYZ", open)
	require.NoError(t, err)
	b, err := p.Get(context.Background(), "N0CALL", open)
	require.NoError(t, err)

	require.EqualValues(t, 2, dials)
	require.NotSame(t, a, b)
}

func TestPoolEvictForcesFreshDial(t *testing.T) {
	p := NewPool()
	var dials int32
	open := func() (Transport, error) {
		atomic.AddInt32(&dials, 1)
		return &countingTransport{}, nil
	}

	first, err := p.Get(context.Background(), "N4XYZ", open)
	require.NoError(t, err)

	p.Evict("N4XYZ")

	second, err := p.Get(context.Background(), "N4XYZ", open)
	require.NoError(t, err)

	require.EqualValues(t, 2, dials)
	require.NotSame(t, first, second)
}

func TestPoolClearClosesCached(t *testing.T) {
	p := NewPool()
	ct := &countingTransport{}
	_, err := p.Get(context.Background(), "N4XYZ", func() (Transport, error) { return ct, nil })
	require.NoError(t, err)

	require.NoError(t, p.Clear())
	require.EqualValues(t, 1, ct.closes)

	// a Get after Clear must dial again; the key is gone from the cache.
	var dials int32
	_, err = p.Get(context.Background(), "N4XYZ", func() (Transport, error) {
		atomic.AddInt32(&dials, 1)
		return &countingTransport{}, nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, dials)
}
