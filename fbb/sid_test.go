package fbb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSID(t *testing.T) {
	sid, err := ParseSID("[FBB-7.0-AB1FHM$]")
	require.NoError(t, err)
	assert.Equal(t, "FBB", sid.Program)
	assert.Equal(t, "7.0", sid.Version)
	assert.True(t, sid.Caps.B1)
	assert.True(t, sid.Caps.FBBBasic)
	assert.True(t, sid.Caps.TrafficLimit)
	assert.True(t, sid.Caps.Terminated)
	assert.Equal(t, []byte("A"), sid.Caps.Unknown)
}

func TestSIDRoundTrip(t *testing.T) {
	sid := SID{Program: "PYF", Version: "0.1", Caps: Capabilities{FBBBasic: true, B1: true, Terminated: true}}
	line := sid.String()
	assert.Equal(t, "[PYF-0.1-FB1$]", line)

	parsed, err := ParseSID(line)
	require.NoError(t, err)
	assert.Equal(t, sid, parsed)
}

func TestParseSIDMissingTerminator(t *testing.T) {
	sid, err := ParseSID("[FBB-7.0-FB1]")
	require.NoError(t, err)
	assert.False(t, sid.Caps.Terminated)
}

func TestParseSIDMalformed(t *testing.T) {
	_, err := ParseSID("not-a-sid-line")
	assert.ErrorIs(t, err, ErrProtocol)
}
