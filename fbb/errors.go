package fbb

import "errors"

// Sentinel errors, one per distinguishable failure kind. Propagation
// follows errors.Is/errors.As over fmt.Errorf("...: %w", ...) wrapping.
var (
	// ErrProtocol: malformed line, bad verdict count, batch checksum
	// mismatch, invalid B2F headers, unexpected command in current state.
	ErrProtocol = errors.New("fbb: protocol error")
	// ErrTransport: read/write failure, timeout, peer closed mid-message.
	ErrTransport = errors.New("fbb: transport error")
	// ErrAuth: challenge present but no secret configured, or response
	// rejected.
	ErrAuth = errors.New("fbb: authentication error")
	// ErrLimit: traffic limit reached with queue not fully drained. Not
	// fatal to the wire session: Connect returns normally, and each
	// message left undelivered by the limit carries ErrLimit in its
	// SendResult.Err.
	ErrLimit = errors.New("fbb: traffic limit reached")
	// ErrLink: AX.25 retries exhausted, SABM refused with DM, DISC
	// received mid-session.
	ErrLink = errors.New("fbb: link error")
	// ErrConfig: invalid callsign, SSID out of range, contradictory
	// capability flags.
	ErrConfig = errors.New("fbb: configuration error")
)
