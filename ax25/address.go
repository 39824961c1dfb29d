// Package ax25 implements the AX.25 v2.0 connected-mode data-link layer:
// callsign-SSID address encoding, frame framing, FCS, and the windowed
// SABM/UA/DISC/RR/RNR/REJ/I-frame state machine.
package ax25

import (
	"fmt"
	"strconv"
	"strings"
)

// AddrLen is the wire size of one encoded AX.25 address field.
const AddrLen = 7

// Address is a callsign-SSID pair as carried in an AX.25 address field.
type Address struct {
	Call string // up to 6 uppercase alphanumeric characters
	SSID uint8  // 0-15

	// Repeated marks the has-been-repeated bit (bit 7 of the SSID octet)
	// for a digipeater address.
	Repeated bool

	// CommandResponse carries the C-bit for the destination/source pair.
	//
	// Both flags share bit 7 of the SSID octet: Encode sets that bit when
	// either flag is true, whatever the address's slot, and DecodeAddress
	// sets both flags from it.
	CommandResponse bool
}

// ParseAddress parses a "CALL-SSID" string, e.g. "N4XYZ-7" or "W1AW".
func ParseAddress(s string) (Address, error) {
	call := s
	ssid := 0
	if i := strings.IndexByte(s, '-'); i >= 0 {
		call = s[:i]
		n, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Address{}, fmt.Errorf("ax25: invalid SSID in %q: %w", s, err)
		}
		ssid = n
	}
	return NewAddress(call, ssid)
}

// NewAddress validates and builds an Address from a call/SSID pair.
func NewAddress(call string, ssid int) (Address, error) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if len(call) == 0 || len(call) > 6 {
		return Address{}, fmt.Errorf("ax25: callsign %q must be 1-6 characters", call)
	}
	for _, c := range call {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return Address{}, fmt.Errorf("ax25: callsign %q has non-alphanumeric character %q", call, c)
		}
	}
	if ssid < 0 || ssid > 15 {
		return Address{}, fmt.Errorf("ax25: SSID %d out of range 0-15", ssid)
	}
	return Address{Call: call, SSID: uint8(ssid)}, nil
}

func (a Address) String() string {
	if a.SSID == 0 {
		return a.Call
	}
	return fmt.Sprintf("%s-%d", a.Call, a.SSID)
}

// Encode writes the 7-byte shifted-ASCII wire form of a into dst[:7].
// last marks the extension bit (bit 0 = 1 means this is the final address
// field in the frame's address block).
func (a Address) Encode(dst []byte, last bool) {
	padded := a.Call + strings.Repeat(" ", 6-len(a.Call))
	for i := 0; i < 6; i++ {
		dst[i] = padded[i] << 1
	}
	b := (a.SSID << 1) | 0x60 // reserved bits 5-6 set per spec
	if a.CommandResponse {
		b |= 0x80
	}
	if a.Repeated {
		b |= 0x80
	}
	if last {
		b |= 0x01
	}
	dst[6] = b
}

// DecodeAddress reads one 7-byte shifted-ASCII address field from src.
// It returns the address, whether the extension bit (last-address) was set,
// and an error if src is short or padding is malformed.
func DecodeAddress(src []byte) (addr Address, last bool, err error) {
	if len(src) < AddrLen {
		return Address{}, false, fmt.Errorf("ax25: short address field (%d bytes)", len(src))
	}
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		c := src[i] >> 1
		if c != ' ' && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return Address{}, false, fmt.Errorf("ax25: invalid callsign byte 0x%02x at offset %d", src[i], i)
		}
		sb.WriteByte(c)
	}
	addr.Call = strings.TrimRight(sb.String(), " ")
	b := src[6]
	addr.SSID = (b >> 1) & 0x0F
	addr.CommandResponse = b&0x80 != 0
	addr.Repeated = b&0x80 != 0
	last = b&0x01 != 0
	return addr, last, nil
}

// Path is an ordered digipeater chain, 0-8 entries.
type Path []Address

func (p Path) Validate() error {
	if len(p) > 8 {
		return fmt.Errorf("ax25: digipeater path too long (%d > 8)", len(p))
	}
	return nil
}
