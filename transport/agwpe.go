package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/n4xyz/gofbb/agwpe"
)

// AGWPEConfig configures the AGWPE SoundCard-TNC transport. The AGW
// engine runs the AX.25-equivalent link state machine itself; this
// transport treats it as a framed byte-stream.
type AGWPEConfig struct {
	Port          uint32
	MyCall        string
	PeerCall      string
	EnableMonitor bool
}

// AGWPE drives a connected-mode session through a local AGWPE engine.
type AGWPE struct {
	rw  io.ReadWriter
	cfg AGWPEConfig
	log *slog.Logger

	conn *agwpe.Conn

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewAGWPE wraps rw (an already-open byte-stream to the AGWPE engine).
func NewAGWPE(rw io.ReadWriter, cfg AGWPEConfig, log *slog.Logger) *AGWPE {
	if log == nil {
		log = slog.Default()
	}
	return &AGWPE{rw: rw, cfg: cfg, log: log}
}

func (t *AGWPE) Open(ctx context.Context) error {
	conn, err := agwpe.Dial(t.rw, t.cfg.MyCall, t.cfg.Port, t.cfg.EnableMonitor)
	if err != nil {
		return wrapErr("agwpe dial", err)
	}
	t.conn = conn
	if err := conn.Connect(t.cfg.MyCall, t.cfg.PeerCall); err != nil {
		return wrapErr("agwpe connect", err)
	}
	return nil
}

// Read pulls connected-data ('D') frames addressed from PeerCall,
// discarding monitor/control frames, and returns up to len(p) bytes.
func (t *AGWPE) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.buf.Len() == 0 {
		f, err := t.conn.ReadFrame()
		if err != nil {
			return 0, wrapErr("agwpe read", err)
		}
		if f.DataKind != agwpe.KindData || f.CallFrom != t.cfg.PeerCall {
			continue
		}
		t.buf.Write(f.Data)
	}
	return t.buf.Read(p)
}

func (t *AGWPE) Write(p []byte) (int, error) {
	if err := t.conn.WriteData(t.cfg.MyCall, t.cfg.PeerCall, p); err != nil {
		return 0, wrapErr("agwpe write", err)
	}
	return len(p), nil
}

func (t *AGWPE) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Disconnect(t.cfg.MyCall, t.cfg.PeerCall)
	if closer, ok := t.rw.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return wrapErr("close", err)
}
