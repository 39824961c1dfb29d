package transport

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/n4xyz/gofbb/ax25"
	"github.com/n4xyz/gofbb/kiss"
)

// KissAX25Config configures the composite transport: KISS framing over
// the AX.25 connected-mode link.
type KissAX25Config struct {
	Local, Peer Address
	Path        ax25.Path
	Kiss        kiss.Config
	Window      int
	T1          int // seconds; 0 uses ax25.DefaultT1

	// OnRetransmit/OnT1Expiry/OnChecksumFail, if set, are invoked on the
	// matching link-layer event; an embedding caller wires these to its
	// own metrics (e.g. package fbb's counters).
	OnRetransmit   func()
	OnT1Expiry     func()
	OnChecksumFail kiss.ChecksumHook
}

// Address is a callsign-SSID pair, re-exported here so callers configuring
// a transport need not import package ax25 directly for the common case.
type Address = ax25.Address

// KissAX25 frames AX.25 frames inside KISS and drives the data-link state
// machine over whatever raw byte-stream (serial port, TCP-to-TNC) it is
// given. Grounded on sip/transport_tcp.go's pattern of owning both the
// wire codec and the connection lifecycle behind the Transport interface.
type KissAX25 struct {
	rw  io.ReadWriter
	cfg KissAX25Config
	log *slog.Logger

	framer *kiss.Framer
	dl     *ax25.DataLink

	readLoopDone chan struct{}
}

// NewKissAX25 wraps rw (an already-open byte-stream to a KISS TNC).
func NewKissAX25(rw io.ReadWriter, cfg KissAX25Config, log *slog.Logger) *KissAX25 {
	if log == nil {
		log = slog.Default()
	}
	return &KissAX25{rw: rw, cfg: cfg, log: log, readLoopDone: make(chan struct{})}
}

// kissFrameWriter adapts kiss.Framer to ax25.FrameWriter by marshalling
// each outgoing AX.25 frame and KISS-wrapping it as data.
type kissFrameWriter struct{ fr *kiss.Framer }

func (w kissFrameWriter) WriteFrame(f ax25.Frame) error {
	b, err := f.Marshal()
	if err != nil {
		return err
	}
	return w.fr.WriteData(b)
}

func (t *KissAX25) Open(ctx context.Context) error {
	var kissOpts []kiss.Option
	if t.cfg.OnChecksumFail != nil {
		kissOpts = append(kissOpts, kiss.WithChecksumHook(t.cfg.OnChecksumFail))
	}
	t.framer = kiss.NewFramer(t.rw, t.rw, t.cfg.Kiss, kissOpts...)

	opts := []ax25.Option{WithLoggerAX25(t.log)}
	if t.cfg.Window > 0 {
		opts = append(opts, ax25.WithWindow(t.cfg.Window))
	}
	if t.cfg.T1 > 0 {
		opts = append(opts, ax25.WithT1(time.Duration(t.cfg.T1)*time.Second))
	}
	if t.cfg.OnRetransmit != nil {
		opts = append(opts, ax25.WithRetransmitHook(t.cfg.OnRetransmit))
	}
	if t.cfg.OnT1Expiry != nil {
		opts = append(opts, ax25.WithT1ExpiryHook(t.cfg.OnT1Expiry))
	}
	t.dl = ax25.New(t.cfg.Local, t.cfg.Peer, t.cfg.Path, kissFrameWriter{t.framer}, opts...)

	go t.readLoop()

	if err := t.dl.Connect(); err != nil {
		return wrapErr("ax25 connect", err)
	}
	return nil
}

// WithLoggerAX25 adapts this package's logger to ax25.Option without
// importing ax25's option constructor name twice at call sites.
func WithLoggerAX25(log *slog.Logger) ax25.Option { return ax25.WithLogger(log) }

func (t *KissAX25) readLoop() {
	defer close(t.readLoopDone)
	for {
		cmd, payload, err := t.framer.ReadFrame()
		if err != nil {
			t.log.Debug("kiss read loop stopped", "err", err)
			return
		}
		if cmd&0x0F != kiss.CmdData {
			continue
		}
		frame, err := ax25.Unmarshal(payload)
		if err != nil {
			t.log.Warn("dropping malformed AX.25 frame from KISS stream", "err", err)
			continue
		}
		t.dl.Input(frame)
	}
}

func (t *KissAX25) Read(p []byte) (int, error) {
	b, err := t.dl.Recv(len(p))
	if err != nil {
		return 0, wrapErr("ax25 recv", err)
	}
	return copy(p, b), nil
}

func (t *KissAX25) Write(p []byte) (int, error) {
	if err := t.dl.Send(p); err != nil {
		return 0, wrapErr("ax25 send", err)
	}
	return len(p), nil
}

func (t *KissAX25) Close() error {
	err := t.dl.Close()
	if closer, ok := t.rw.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	<-t.readLoopDone
	if err != nil {
		return wrapErr("close", err)
	}
	return nil
}
