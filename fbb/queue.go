package fbb

import (
	"github.com/n4xyz/gofbb/b2f"
	"github.com/n4xyz/gofbb/lzhuf"
)

// Outbound is one message handed to Session.Queue for forwarding: a
// proposal entry plus the message it carries.
type Outbound struct {
	Msg *b2f.Message

	// FromBBS/ToBBS/Routing fill the proposal line's from/to/@-routing
	// fields; Routing is the next-hop BBS, e.g. "N4XYZ" (the leading '@'
	// is added on the wire automatically).
	FromBBS string
	ToBBS   string
	Routing string

	// Binary selects FB (LZHUF/gzip binary framing) over FA (plain ASCII
	// body + 0x1A terminator). UseB2F selects FC (full B2F header block,
	// always binary-framed) and takes precedence over Binary.
	Binary bool
	UseB2F bool
}

func (o *Outbound) kind() Kind {
	switch {
	case o.UseB2F:
		return KindFC
	case o.Binary:
		return KindFB
	default:
		return KindFA
	}
}

// wireBody is the raw byte sequence that gets chunked/terminated on the
// wire for this message, before any compression: for FA, just the message
// body with nothing else appended; for FB/FC, the full B2F header block
// via b2f.Message.Marshal.
func (o *Outbound) wireBody() []byte {
	if o.kind() == KindFA {
		return o.Msg.Body
	}
	return o.Msg.Marshal()
}

// queued pairs an Outbound with its tracked status. It holds no cached
// content; wireBody is recomputed wherever the wire bytes are needed.
type queued struct {
	out    *Outbound
	result SendResult
}

func newQueued(o *Outbound) *queued {
	return &queued{out: o, result: SendResult{Mid: o.Msg.Mid, Status: StatusPending}}
}

// chooseCompressor picks LZHUF (default) or gzip as an alternative used
// only when both peers advertise it and the session is configured with
// use_gzip=true; the gzip capability letter is fixed as 'G' per
// DESIGN.md Open Question decision 2.
func chooseCompressor(useGzip bool, ours, peer Capabilities) lzhuf.Compressor {
	if useGzip && ours.Gzip && peer.Gzip {
		return lzhuf.Gzip{}
	}
	return lzhuf.LZHUF{}
}
