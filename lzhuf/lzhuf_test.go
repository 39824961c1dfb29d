package lzhuf

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("a"),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("the quick brown fox jumps over the lazy dog the quick brown fox"),
		bytes.Repeat([]byte("ABCABCABCABC"), 500),
	}
	for _, c := range cases {
		got, err := Decompress(Compress(c))
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestCompressDecompressRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		n := r.Intn(5000)
		buf := make([]byte, n)
		r.Read(buf)
		got, err := Decompress(Compress(buf))
		require.NoError(t, err)
		require.Equal(t, buf, got)
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	src := bytes.Repeat([]byte("WINLINK FORWARDING "), 1000)
	out := Compress(src)
	require.Less(t, len(out), len(src)/2)
}

func TestDecompressRejectsShortInput(t *testing.T) {
	_, err := Decompress([]byte{0x01})
	require.Error(t, err)
}

func TestDecompressRejectsTruncatedBitstream(t *testing.T) {
	wire := Compress([]byte("hello, forwarding world"))
	_, err := Decompress(wire[:len(wire)-2])
	require.Error(t, err)
}

func TestGzipCompressorRoundTrip(t *testing.T) {
	var g Gzip
	src := []byte("FBB proposal and binary block body, repeated repeated repeated")
	got, err := g.Decompress(g.Compress(src))
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestLZHUFAndGzipImplementCompressor(t *testing.T) {
	var _ Compressor = LZHUF{}
	var _ Compressor = Gzip{}
}
