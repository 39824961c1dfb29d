// Package lzhuf implements the LZSS + adaptive-Huffman message compressor
// used by the B2F binary block layer: a 4096-byte sliding window, match
// lengths 3..60, and 314-symbol adaptive Huffman coding of the
// literal/length token stream. Match offsets are transmitted as raw
// 12-bit fields alongside the Huffman-coded symbol; only literal-or-length
// symbols go through the Huffman stage.
//
// Structured as pure, allocation-light transforms with no package-level
// state, in the shape of the classical Okumura/Yoshizaki LZHUF algorithm,
// with the sibling gzip.go adapter covering the same Compressor contract.
package lzhuf

import "encoding/binary"

const (
	windowSize = 4096
	minMatch   = 3
	maxMatch   = 60
	posBits    = 12 // log2(windowSize)
)

// Compress returns src encoded as a little-endian uint32 original length
// followed by the LZSS/Huffman bitstream.
func Compress(src []byte) []byte {
	var out bitWriter
	model := newHuffmanModel()

	matcher := newMatchFinder()

	i := 0
	for i < len(src) {
		length, offset := matcher.find(src, i)
		if length >= minMatch {
			model.encode(&out, lengthSymbol(length))
			out.writeBits(uint32(offset), posBits)
			model.update(lengthSymbol(length))
			for k := 0; k < length; k++ {
				matcher.insert(src, i+k)
			}
			i += length
		} else {
			model.encode(&out, int(src[i]))
			model.update(int(src[i]))
			matcher.insert(src, i)
			i++
		}
	}

	payload := out.flush()
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(len(src)))
	return append(hdr, payload...)
}

// Decompress reverses Compress.
func Decompress(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, errShortInput
	}
	origLen := binary.LittleEndian.Uint32(src[0:4])
	r := newBitReader(src[4:])
	model := newHuffmanModel()

	out := make([]byte, 0, origLen)
	for uint32(len(out)) < origLen {
		symbol, ok := model.decode(r)
		if !ok {
			return nil, errTruncated
		}
		if symbol < 256 {
			out = append(out, byte(symbol))
			model.update(symbol)
			continue
		}
		length := symbolLength(symbol)
		model.update(symbol)
		offset, ok := r.readBits(posBits)
		if !ok {
			return nil, errTruncated
		}
		start := len(out) - int(offset) - 1
		if start < 0 {
			return nil, errBadOffset
		}
		for k := 0; k < length; k++ {
			out = append(out, out[start+k])
		}
	}
	return out, nil
}
