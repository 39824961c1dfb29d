package transport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultReadTimeout is the transport's default read timeout; on expiry
// the session engine raises a transport error and closes.
const DefaultReadTimeout = 30 * time.Second

// TCPConfig configures a plain-TCP transport.
type TCPConfig struct {
	Addr        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// TCP is the plain byte-stream transport, grounded on
// sip/transport_tcp.go's dialer pattern.
type TCP struct {
	cfg  TCPConfig
	log  *slog.Logger
	mu   sync.Mutex
	conn net.Conn
}

// NewTCP constructs an unopened TCP transport.
func NewTCP(cfg TCPConfig, log *slog.Logger) *TCP {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &TCP{cfg: cfg, log: log}
}

func (t *TCP) Open(ctx context.Context) error {
	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return wrapErr("dial", err)
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.log.Debug("transport opened", "network", "tcp", "addr", t.cfg.Addr)
	return nil
}

func (t *TCP) Read(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrClosed
	}
	if err := conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
		return 0, wrapErr("set read deadline", err)
	}
	n, err := conn.Read(p)
	return n, wrapErr("read", err)
}

func (t *TCP) Write(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrClosed
	}
	n, err := conn.Write(p)
	return n, wrapErr("write", err)
}

func (t *TCP) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return wrapErr("close", conn.Close())
}
