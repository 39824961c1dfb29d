package b2f

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("short"),
		bytes.Repeat([]byte{0xAB}, maxChunkData),
		bytes.Repeat([]byte{0xCD}, maxChunkData+1),
		bytes.Repeat([]byte("binary message body"), 500),
	}
	for _, c := range cases {
		got, err := DecodeBlock(bytes.NewReader(EncodeBlock(c)))
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestEncodeDecodeBlockRandom(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		buf := make([]byte, r.Intn(3000))
		r.Read(buf)
		got, err := DecodeBlock(bytes.NewReader(EncodeBlock(buf)))
		require.NoError(t, err)
		require.Equal(t, buf, got)
	}
}

func TestDecodeBlockDetectsChecksumMismatch(t *testing.T) {
	wire := EncodeBlock([]byte("hello"))
	wire[len(wire)-3] ^= 0xFF // corrupt the checksum byte
	_, err := DecodeBlock(bytes.NewReader(wire))
	require.ErrorIs(t, err, ErrChecksum)
}

func TestDecodeBlockRejectsBadETXLength(t *testing.T) {
	wire := []byte{stx, 2, 'h', 'i', blockChecksum([]byte("hi")), etx, 1}
	_, err := DecodeBlock(bytes.NewReader(wire))
	require.Error(t, err)
}

func TestDecodeBlockRejectsUnknownMarker(t *testing.T) {
	_, err := DecodeBlock(bytes.NewReader([]byte{0x99, 0}))
	require.Error(t, err)
}
