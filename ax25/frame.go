package ax25

import "fmt"

// Control field constants for AX.25 v2.0 modulo-8 operation, with the P/F
// bit (0x10) clear; controlOctet ORs it in from Frame.PollFinal.
const (
	ctrlSABM uint8 = 0x2F
	ctrlUA   uint8 = 0x63
	ctrlDISC uint8 = 0x43
	ctrlDM   uint8 = 0x0F
	ctrlRR   uint8 = 0x01
	ctrlRNR  uint8 = 0x05
	ctrlREJ  uint8 = 0x09

	// PIDNone is the AX.25 PID value meaning "no layer 3 protocol".
	PIDNone uint8 = 0xF0
)

// FrameKind identifies which AX.25 frame class a Frame carries.
type FrameKind int

const (
	KindI FrameKind = iota
	KindRR
	KindRNR
	KindREJ
	KindSABM
	KindUA
	KindDISC
	KindDM
)

func (k FrameKind) String() string {
	switch k {
	case KindI:
		return "I"
	case KindRR:
		return "RR"
	case KindRNR:
		return "RNR"
	case KindREJ:
		return "REJ"
	case KindSABM:
		return "SABM"
	case KindUA:
		return "UA"
	case KindDISC:
		return "DISC"
	case KindDM:
		return "DM"
	default:
		return "UNKNOWN"
	}
}

// Frame is a decoded AX.25 v2.0 modulo-8 frame.
type Frame struct {
	Dest        Address
	Src         Address
	Digipeaters Path
	Kind        FrameKind
	NS          uint8 // N(S), I-frames only
	NR          uint8 // N(R), I/S frames
	PollFinal   bool
	PID         uint8 // valid when Kind == KindI
	Payload     []byte
}

// Marshal encodes f into its wire representation: address block, control
// octet, optional PID, payload. FCS is not appended here; callers append it
// (e.g. via AppendFCS) when framing over a medium that carries one (KISS
// does not re-add an FCS; it is the TNC's concern on the radio side, but the
// core computes and validates it for testability).
func (f Frame) Marshal() ([]byte, error) {
	if err := f.Digipeaters.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, AddrLen*(2+len(f.Digipeaters))+2+len(f.Payload))
	buf := make([]byte, AddrLen)

	lastAddr := len(f.Digipeaters) == 0
	f.Dest.Encode(buf, false)
	out = append(out, buf...)
	f.Src.Encode(buf, lastAddr)
	out = append(out, buf...)
	for i, d := range f.Digipeaters {
		d.Encode(buf, i == len(f.Digipeaters)-1)
		out = append(out, buf...)
	}

	ctrl, err := f.controlOctet()
	if err != nil {
		return nil, err
	}
	out = append(out, ctrl)

	if f.Kind == KindI {
		pid := f.PID
		if pid == 0 {
			pid = PIDNone
		}
		out = append(out, pid)
		out = append(out, f.Payload...)
	}
	return out, nil
}

func (f Frame) controlOctet() (uint8, error) {
	p := uint8(0)
	if f.PollFinal {
		p = 1
	}
	switch f.Kind {
	case KindI:
		return (f.NR << 5) | (p << 4) | (f.NS << 1), nil
	case KindRR:
		return ctrlRR | (f.NR << 5) | (p << 4), nil
	case KindRNR:
		return ctrlRNR | (f.NR << 5) | (p << 4), nil
	case KindREJ:
		return ctrlREJ | (f.NR << 5) | (p << 4), nil
	case KindSABM:
		return ctrlSABM | (p << 4), nil
	case KindUA:
		return ctrlUA | (p << 4), nil
	case KindDISC:
		return ctrlDISC | (p << 4), nil
	case KindDM:
		return ctrlDM | (p << 4), nil
	default:
		return 0, fmt.Errorf("ax25: unknown frame kind %v", f.Kind)
	}
}

// Unmarshal decodes an AX.25 frame (address block through payload, no
// trailing FCS) from b.
func Unmarshal(b []byte) (Frame, error) {
	var f Frame
	if len(b) < AddrLen*2+1 {
		return f, fmt.Errorf("ax25: frame too short (%d bytes)", len(b))
	}
	off := 0
	dest, last, err := DecodeAddress(b[off:])
	if err != nil {
		return f, err
	}
	off += AddrLen
	if last {
		return f, fmt.Errorf("ax25: destination address marked as last")
	}

	src, last, err := DecodeAddress(b[off:])
	if err != nil {
		return f, err
	}
	off += AddrLen

	var path Path
	for !last {
		if off+AddrLen > len(b) {
			return f, fmt.Errorf("ax25: truncated digipeater address block")
		}
		var d Address
		d, last, err = DecodeAddress(b[off:])
		if err != nil {
			return f, err
		}
		path = append(path, d)
		off += AddrLen
	}
	if len(path) > 8 {
		return f, fmt.Errorf("ax25: digipeater path too long (%d > 8)", len(path))
	}

	if off >= len(b) {
		return f, fmt.Errorf("ax25: missing control octet")
	}
	ctrl := b[off]
	off++

	f.Dest, f.Src, f.Digipeaters = dest, src, path
	f.PollFinal = ctrl&0x10 != 0

	switch {
	case ctrl&0x01 == 0:
		f.Kind = KindI
		f.NS = (ctrl >> 1) & 0x07
		f.NR = (ctrl >> 5) & 0x07
		if off >= len(b) {
			return f, fmt.Errorf("ax25: I-frame missing PID")
		}
		f.PID = b[off]
		off++
		f.Payload = append([]byte(nil), b[off:]...)
	case ctrl&0x03 == 0x01:
		f.NR = (ctrl >> 5) & 0x07
		switch ctrl &^ (0xE0 | 0x10) {
		case ctrlRR:
			f.Kind = KindRR
		case ctrlRNR:
			f.Kind = KindRNR
		case ctrlREJ:
			f.Kind = KindREJ
		default:
			return f, fmt.Errorf("ax25: unknown S-frame control 0x%02x", ctrl)
		}
	default:
		switch ctrl &^ 0x10 {
		case ctrlSABM:
			f.Kind = KindSABM
		case ctrlUA:
			f.Kind = KindUA
		case ctrlDISC:
			f.Kind = KindDISC
		case ctrlDM:
			f.Kind = KindDM
		default:
			return f, fmt.Errorf("ax25: unknown U-frame control 0x%02x", ctrl)
		}
	}
	return f, nil
}
