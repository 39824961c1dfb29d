package lzhuf

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// Compressor is the pure compress/decompress pair the B2F binary block
// layer codes against: no state across calls. Both LZHUF and gzip
// implement it so the session layer can pick one via use_gzip / SID
// negotiation without caring which it got.
type Compressor interface {
	Compress(src []byte) []byte
	Decompress(src []byte) ([]byte, error)
}

// LZHUF is the classical Okumura/Yoshizaki codec, the default.
type LZHUF struct{}

func (LZHUF) Compress(src []byte) []byte            { return Compress(src) }
func (LZHUF) Decompress(src []byte) ([]byte, error) { return Decompress(src) }

// Gzip is the alternative compressor: identical little-endian-uint32-
// length-prefixed framing, gzip-compressed body, negotiated only when
// both peers advertise it and the session runs with use_gzip=true.
type Gzip struct{ Level int }

func (g Gzip) Compress(src []byte) []byte {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	buf.Write(make([]byte, 4))
	binary.LittleEndian.PutUint32(buf.Bytes()[0:4], uint32(len(src)))

	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		// Level is validated at construction time by callers; an invalid
		// value falls back to the library default rather than panicking.
		w = gzip.NewWriter(&buf)
	}
	_, _ = w.Write(src)
	_ = w.Close()
	return buf.Bytes()
}

func (Gzip) Decompress(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, errShortInput
	}
	origLen := binary.LittleEndian.Uint32(src[0:4])
	zr, err := gzip.NewReader(bytes.NewReader(src[4:]))
	if err != nil {
		return nil, fmt.Errorf("lzhuf: gzip header: %w", err)
	}
	defer zr.Close()

	out := make([]byte, 0, origLen)
	buf := make([]byte, 4096)
	for {
		n, err := zr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lzhuf: gzip body: %w", err)
		}
	}
	return out, nil
}
