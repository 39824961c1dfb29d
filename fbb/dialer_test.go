package fbb

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/n4xyz/gofbb/transport"
)

// deadTransport fails the SID exchange immediately with io.EOF so Connect
// returns quickly without a peer on the other end; these tests only care
// about how many times Dialer dials, not about a full session.
type deadTransport struct{}

func (deadTransport) Open(context.Context) error  { return nil }
func (deadTransport) Read([]byte) (int, error)    { return 0, io.EOF }
func (deadTransport) Write(p []byte) (int, error) { return len(p), nil }
func (deadTransport) Close() error                { return nil }

func testCfg() SessionConfig {
	return SessionConfig{Callsign: "N0CALL", SSID: 0}
}

func TestDialerDedupesConcurrentConnectsToSameKey(t *testing.T) {
	d := NewDialer()

	var dials int32
	start := make(chan struct{})
	open := func() (transport.Transport, error) {
		atomic.AddInt32(&dials, 1)
		<-start
		return deadTransport{}, nil
	}

	const n = 6
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Connect(context.Background(), "N4XYZ", open, testCfg(), nil)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, dials, "concurrent Connect calls for the same key must share one dial")
}

func TestDialerEvictsAfterConnectSoNextDialIsFresh(t *testing.T) {
	d := NewDialer()
	var dials int32
	open := func() (transport.Transport, error) {
		atomic.AddInt32(&dials, 1)
		return deadTransport{}, nil
	}

	_, err1 := d.Connect(context.Background(), "N4XYZ", open, testCfg(), nil)
	require.Error(t, err1)

	_, err2 := d.Connect(context.Background(), "N4XYZ", open, testCfg(), nil)
	require.Error(t, err2)

	require.EqualValues(t, 2, dials, "each sequential Connect to an already-closed session must dial again")
}
