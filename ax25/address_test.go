package ax25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	a, err := NewAddress("n4xyz", 7)
	require.NoError(t, err)
	require.Equal(t, "N4XYZ", a.Call)
	require.Equal(t, uint8(7), a.SSID)

	buf := make([]byte, AddrLen)
	a.Encode(buf, true)

	got, last, err := DecodeAddress(buf)
	require.NoError(t, err)
	require.True(t, last)
	require.Equal(t, a.Call, got.Call)
	require.Equal(t, a.SSID, got.SSID)
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("W1AW-0")
	require.NoError(t, err)
	require.Equal(t, "W1AW", a.String())

	_, err = ParseAddress("TOOLONGCALL-1")
	require.Error(t, err)

	_, err = ParseAddress("W1AW-16")
	require.Error(t, err)
}

func TestEncodeDecodeRepeatedBit(t *testing.T) {
	a, err := NewAddress("WIDE2", 1)
	require.NoError(t, err)
	a.Repeated = true

	buf := make([]byte, AddrLen)
	a.Encode(buf, false)
	got, last, err := DecodeAddress(buf)
	require.NoError(t, err)
	require.False(t, last)
	require.True(t, got.Repeated)
}
