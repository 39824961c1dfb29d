package agwpe

import (
	"bufio"
	"fmt"
	"io"
)

// Conn wraps an AGWPE byte-stream connection: the 'X' login handshake,
// optional 'm' monitor enable, and framed 'D'/'C' data I/O.
type Conn struct {
	rw  io.ReadWriter
	r   *bufio.Reader
	Port uint32
	Call string
}

// Dial performs the application login handshake over rw (already an open
// byte-stream to the AGWPE engine), registering call on port.
func Dial(rw io.ReadWriter, call string, port uint32, enableMonitor bool) (*Conn, error) {
	c := &Conn{rw: rw, r: bufio.NewReader(rw), Port: port, Call: call}

	if err := WriteFrame(c.rw, Frame{Port: port, DataKind: KindLogin, CallFrom: call}); err != nil {
		return nil, fmt.Errorf("agwpe: send login: %w", err)
	}
	reply, err := ReadFrame(c.r)
	if err != nil {
		return nil, fmt.Errorf("agwpe: await login reply: %w", err)
	}
	if reply.DataKind != KindLogin {
		return nil, fmt.Errorf("agwpe: unexpected login reply DataKind %q", reply.DataKind)
	}

	if enableMonitor {
		if err := WriteFrame(c.rw, Frame{Port: port, DataKind: KindMonitor}); err != nil {
			return nil, fmt.Errorf("agwpe: enable monitor: %w", err)
		}
	}
	return c, nil
}

// Connect sends 'C' to ask the AGW engine to establish a connected AX.25
// link to peer. The engine itself runs the data-link state machine; this
// module only frames the request.
func (c *Conn) Connect(myCall, peerCall string) error {
	return WriteFrame(c.rw, Frame{Port: c.Port, DataKind: KindConnect, CallFrom: myCall, CallTo: peerCall})
}

// Disconnect sends 'd'.
func (c *Conn) Disconnect(myCall, peerCall string) error {
	return WriteFrame(c.rw, Frame{Port: c.Port, DataKind: KindDisconnect, CallFrom: myCall, CallTo: peerCall})
}

// WriteData sends connected data ('D') to peerCall.
func (c *Conn) WriteData(myCall, peerCall string, data []byte) error {
	return WriteFrame(c.rw, Frame{Port: c.Port, DataKind: KindData, CallFrom: myCall, CallTo: peerCall, Data: data})
}

// ReadFrame reads the next frame (data, monitor, or control) from the
// engine.
func (c *Conn) ReadFrame() (Frame, error) {
	return ReadFrame(c.r)
}
