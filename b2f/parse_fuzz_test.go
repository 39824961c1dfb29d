package b2f

import (
	"bytes"
	"strings"
	"testing"
)

func FuzzParse(f *testing.F) {
	msg := Message{
		Mid:     "TEST001",
		Date:    "2026/07/30 12:00",
		Type:    TypePrivate,
		From:    "W1AW",
		To:      []string{"KE4AHR"},
		Subject: "Test",
		Body:    []byte("hello"),
	}
	f.Add(string(msg.Marshal()))
	f.Add("")
	f.Add(strings.Join([]string{"Mid: X", "Date: D", "Type: P", "From: A", "Subject: S", "Body: 0", "", ""}, "\r\n"))

	f.Fuzz(func(t *testing.T, raw string) {
		Parse(bytes.NewReader([]byte(raw)), ParseOptions{MaxPayload: 1 << 20})
	})
}
