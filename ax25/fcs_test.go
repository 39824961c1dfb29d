package ax25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFCSRoundTrip(t *testing.T) {
	data := []byte("THE QUICK BROWN FOX")
	framed := AppendFCS(append([]byte(nil), data...))
	require.True(t, CheckFCS(framed))

	framed[len(framed)-1] ^= 0xFF
	require.False(t, CheckFCS(framed))
}

func TestFCSEmpty(t *testing.T) {
	require.False(t, CheckFCS(nil))
	require.False(t, CheckFCS([]byte{0x01}))
}
