// Package fakes provides hand-rolled in-memory transports for tests: a
// small struct wrapping a Reader/Writer pair rather than a generated-mock
// framework.
package fakes

import (
	"context"
	"net"
	"testing"
)

// Transport is an in-memory transport.Transport implementation (it
// satisfies the interface structurally, without this package importing
// transport; package fbb's tests use it that way).
type Transport struct {
	rw     net.Conn
	opened bool
}

// NewPipe returns two connected Transports backed by net.Pipe: writes to
// one side are readable from the other.
func NewPipe() (*Transport, *Transport) {
	a, b := net.Pipe()
	return &Transport{rw: a}, &Transport{rw: b}
}

func (t *Transport) Open(ctx context.Context) error {
	t.opened = true
	return nil
}

func (t *Transport) Read(p []byte) (int, error) {
	return t.rw.Read(p)
}

func (t *Transport) Write(p []byte) (int, error) {
	return t.rw.Write(p)
}

func (t *Transport) Close() error {
	return t.rw.Close()
}

// TestReadAll reads whatever is immediately available up to len(buf),
// failing the test on error.
func TestReadAll(t testing.TB, tr *Transport, buf []byte) []byte {
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	return buf[:n]
}
