package fbb

import "github.com/n4xyz/gofbb/b2f"

// Status classifies the outcome of one outbound message at session end.
// Proposal-level rejects are not errors: they are reported per-message in
// the final session report rather than surfaced as a connect failure.
type Status int

const (
	StatusPending Status = iota
	StatusSent
	StatusRejected
	StatusAlreadyHave
	StatusResourceRejected
	StatusErrorRejected
	StatusFormatRejected
	StatusLimited
	StatusAlreadyDelivered // local resume offset == message size, never proposed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusRejected:
		return "rejected"
	case StatusAlreadyHave:
		return "already-have"
	case StatusResourceRejected:
		return "resource-rejected"
	case StatusErrorRejected:
		return "error-rejected"
	case StatusFormatRejected:
		return "format-rejected"
	case StatusLimited:
		return "traffic-limited"
	case StatusAlreadyDelivered:
		return "already-delivered"
	default:
		return "pending"
	}
}

// SendResult records the final disposition of one item originally handed
// to Session.Queue.
type SendResult struct {
	Mid    string
	Status Status
	Err    error
}

// Report is returned by Session.Connect on any clean session end, including
// a partial one cut short by a peer traffic-limit (H). Received holds
// whatever messages were successfully received before any such cutoff.
type Report struct {
	Sent     []SendResult
	Received []*b2f.Message
}
