package fbb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n4xyz/gofbb/b2f"
	"github.com/n4xyz/gofbb/fakes"
	"github.com/n4xyz/gofbb/lzhuf"
)

// The peer side of these tests is a hand-scripted FBB station, not a second
// Session: a real connection always has one side speak its SID first
// without waiting (the "answering" station), and scripting that side
// directly against the worked wire protocol is more faithful than racing
// two identically-behaved Sessions against each other.

func peerWriteLine(t *fakes.Transport, line string) error {
	_, err := t.Write([]byte(line + "\r\n"))
	return err
}

func peerReadLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func TestSessionSimpleASCIIForward(t *testing.T) {
	mine, theirs := fakes.NewPipe()

	sess, err := NewSession(mine, SessionConfig{Callsign: "N4XYZ", SSID: 1})
	require.NoError(t, err)
	sess.Queue(&Outbound{
		Msg:     &b2f.Message{Mid: "TEST001", Type: b2f.TypePrivate, From: "W1AW", To: []string{"KE4AHR"}, Body: []byte("Hello\r\n73")},
		FromBBS: "W1AW",
		ToBBS:   "KE4AHR",
		Routing: "N4XYZ",
	})

	done := make(chan error, 1)
	go func() {
		br := bufio.NewReader(theirs)
		if err := peerWriteLine(theirs, "[FBB-7.0-FB1$]"); err != nil {
			done <- err
			return
		}
		if _, err := peerReadLine(br); err != nil { // our SID
			done <- err
			return
		}
		proposal, err := peerReadLine(br)
		if err != nil {
			done <- err
			return
		}
		if proposal != "FA P 9 W1AW KE4AHR @N4XYZ TEST001" {
			done <- fmt.Errorf("unexpected proposal line: %q", proposal)
			return
		}
		checksum, err := peerReadLine(br)
		if err != nil {
			done <- err
			return
		}
		if !strings.HasPrefix(checksum, "F> ") {
			done <- fmt.Errorf("expected F> checksum line, got %q", checksum)
			return
		}
		if err := peerWriteLine(theirs, "FS +"); err != nil {
			done <- err
			return
		}
		body, err := br.ReadBytes(0x1A)
		if err != nil {
			done <- err
			return
		}
		if string(body[:len(body)-1]) != "Hello\r\n73" {
			done <- fmt.Errorf("unexpected body: %q", body)
			return
		}
		fq, err := peerReadLine(br)
		if err != nil {
			done <- err
			return
		}
		if fq != "FQ" {
			done <- fmt.Errorf("expected FQ, got %q", fq)
			return
		}
		done <- nil
	}()

	report, err := sess.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Len(t, report.Sent, 1)
	assert.Equal(t, "TEST001", report.Sent[0].Mid)
	assert.Equal(t, StatusSent, report.Sent[0].Status)
}

func TestSessionResumeFromPeerVerdict(t *testing.T) {
	mine, theirs := fakes.NewPipe()

	msg := &b2f.Message{Mid: "TEST002", Type: b2f.TypeBulletin, From: "W1AW", To: []string{"KE4AHR"}, Subject: "Test", Body: []byte("0123456789ABCDEFGHIJ")}
	content := msg.Marshal()

	sess, err := NewSession(mine, SessionConfig{Callsign: "N4XYZ", SSID: 1})
	require.NoError(t, err)
	sess.Queue(&Outbound{Msg: msg, FromBBS: "W1AW", ToBBS: "KE4AHR", Binary: true})

	proposalRe := regexp.MustCompile(`^FB B (\d+) W1AW KE4AHR  TEST002$`)

	done := make(chan error, 1)
	go func() {
		br := bufio.NewReader(theirs)
		if err := peerWriteLine(theirs, "[FBB-7.0-FB1$]"); err != nil {
			done <- err
			return
		}
		if _, err := peerReadLine(br); err != nil {
			done <- err
			return
		}
		proposal, err := peerReadLine(br)
		if err != nil {
			done <- err
			return
		}
		if !proposalRe.MatchString(proposal) {
			done <- fmt.Errorf("unexpected proposal line: %q", proposal)
			return
		}
		if _, err := peerReadLine(br); err != nil { // F> checksum
			done <- err
			return
		}
		if err := peerWriteLine(theirs, "FS !5"); err != nil {
			done <- err
			return
		}
		compressed, err := b2f.DecodeBlock(br)
		if err != nil {
			done <- err
			return
		}
		plain, err := (lzhuf.LZHUF{}).Decompress(compressed)
		if err != nil {
			done <- err
			return
		}
		if !bytes.Equal(plain, content[5:]) {
			done <- fmt.Errorf("resumed body mismatch: got %d bytes, want %d", len(plain), len(content[5:]))
			return
		}
		if _, err := peerReadLine(br); err != nil { // FQ
			done <- err
			return
		}
		done <- nil
	}()

	report, err := sess.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Len(t, report.Sent, 1)
	assert.Equal(t, StatusSent, report.Sent[0].Status)
}

func TestSessionTrafficLimitStopsQueue(t *testing.T) {
	mine, theirs := fakes.NewPipe()

	sess, err := NewSession(mine, SessionConfig{Callsign: "N4XYZ", SSID: 1})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		mid := fmt.Sprintf("M%d", i)
		sess.Queue(&Outbound{
			Msg:     &b2f.Message{Mid: mid, Type: b2f.TypePrivate, From: "W1AW", To: []string{"KE4AHR"}, Body: []byte("hi")},
			FromBBS: "W1AW",
			ToBBS:   "KE4AHR",
		})
	}

	done := make(chan error, 1)
	go func() {
		br := bufio.NewReader(theirs)
		// Peer asserts H: traffic limiting is in effect for this session.
		if err := peerWriteLine(theirs, "[FBB-7.0-FB1H$]"); err != nil {
			done <- err
			return
		}
		if _, err := peerReadLine(br); err != nil {
			done <- err
			return
		}
		for i := 0; i < 5; i++ {
			if _, err := peerReadLine(br); err != nil {
				done <- err
				return
			}
		}
		if _, err := peerReadLine(br); err != nil { // F> checksum
			done <- err
			return
		}
		if err := peerWriteLine(theirs, "FS +++--"); err != nil {
			done <- err
			return
		}
		for i := 0; i < 3; i++ {
			if _, err := br.ReadBytes(0x1A); err != nil {
				done <- err
				return
			}
		}
		fq, err := peerReadLine(br)
		if err != nil {
			done <- err
			return
		}
		if fq != "FQ" {
			done <- fmt.Errorf("expected FQ, got %q", fq)
			return
		}
		done <- nil
	}()

	report, err := sess.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Len(t, report.Sent, 5)
	assert.Equal(t, StatusSent, report.Sent[0].Status)
	assert.Equal(t, StatusSent, report.Sent[1].Status)
	assert.Equal(t, StatusSent, report.Sent[2].Status)
	assert.Equal(t, StatusLimited, report.Sent[3].Status)
	assert.Equal(t, StatusLimited, report.Sent[4].Status)
}

func TestSessionAuthChallengeWithoutSecretFails(t *testing.T) {
	mine, theirs := fakes.NewPipe()

	sess, err := NewSession(mine, SessionConfig{Callsign: "N4XYZ", SSID: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		br := bufio.NewReader(theirs)
		if err := peerWriteLine(theirs, "[FBB-7.0-FB1$]"); err != nil {
			done <- err
			return
		}
		if _, err := peerReadLine(br); err != nil { // our SID
			done <- err
			return
		}
		if err := peerWriteLine(theirs, ";PQ 12345678"); err != nil {
			done <- err
			return
		}
		buf := make([]byte, 1)
		_, err := theirs.Read(buf) // transport closes without an auth response
		done <- err
	}()

	_, err = sess.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
	assert.Error(t, <-done)
}
