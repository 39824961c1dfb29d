package b2f

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleMessage() Message {
	return Message{
		Mid:     "TEST001",
		Date:    "2026/07/30 14:05",
		Type:    TypePrivate,
		From:    "W1AW",
		To:      []string{"KE4AHR@N4XYZ"},
		Subject: "Hello",
		Mbo:     "N4XYZ",
		Body:    []byte("Hello\r\n73"),
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	m := sampleMessage()
	wire := m.Marshal()

	got, err := Parse(bytes.NewReader(wire), ParseOptions{})
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMarshalParseRoundTripWithAttachments(t *testing.T) {
	m := sampleMessage()
	m.Files = []File{
		{Name: "photo.jpg", Data: bytes.Repeat([]byte{0xFF, 0xD8, 0x01}, 4000)},
		{Name: "readme.txt", Data: []byte("attachment body")},
	}

	got, err := Parse(bytes.NewReader(m.Marshal()), ParseOptions{})
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestParseRejectsMissingRequiredHeaders(t *testing.T) {
	wire := "Mid: X1\r\nDate: 2026/07/30 14:05\r\nType: P\r\nFrom: W1AW\r\n\r\n"
	_, err := Parse(bytes.NewReader([]byte(wire)), ParseOptions{})
	require.ErrorIs(t, err, ErrMissingHeader)
}

func TestParseRejectsDuplicateMid(t *testing.T) {
	wire := "Mid: X1\r\nMid: X2\r\nDate: d\r\nType: P\r\nFrom: W1AW\r\nSubject: s\r\nBody: 0\r\n\r\n\r\n"
	_, err := Parse(bytes.NewReader([]byte(wire)), ParseOptions{})
	require.ErrorIs(t, err, ErrDuplicateMid)
}

func TestParseRejectsInvalidType(t *testing.T) {
	wire := "Mid: X1\r\nDate: d\r\nType: Z\r\nFrom: W1AW\r\nSubject: s\r\nBody: 0\r\n\r\n\r\n"
	_, err := Parse(bytes.NewReader([]byte(wire)), ParseOptions{})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestParseRejectsBadBodyLength(t *testing.T) {
	wire := "Mid: X1\r\nDate: d\r\nType: P\r\nFrom: W1AW\r\nSubject: s\r\nBody: -3\r\n\r\n"
	_, err := Parse(bytes.NewReader([]byte(wire)), ParseOptions{})
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestParseRejectsOversizedPayload(t *testing.T) {
	m := sampleMessage()
	m.Body = bytes.Repeat([]byte{'x'}, 1000)
	_, err := Parse(bytes.NewReader(m.Marshal()), ParseOptions{MaxPayload: 10})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestParseRejectsTruncatedBody(t *testing.T) {
	m := sampleMessage()
	wire := m.Marshal()
	_, err := Parse(bytes.NewReader(wire[:len(wire)-5]), ParseOptions{})
	require.ErrorIs(t, err, ErrTruncatedBody)
}
