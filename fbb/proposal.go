package fbb

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a proposal line's leading two-character command.
type Kind string

const (
	KindFA Kind = "FA" // ASCII
	KindFB Kind = "FB" // binary (LZHUF or gzip)
	KindFC Kind = "FC" // B2F
)

// Proposal is one outbound or inbound forwarding offer: kind, message type,
// from/to BBS callsigns (or @-routing), message ID, size, and an optional
// resume offset.
type Proposal struct {
	Kind     Kind
	MsgType  byte // 'P'/'B'/'T'
	Size     int64
	CompSize int64 // FC only: compressed size
	From     string
	To       string
	Routing  string // "@CALL", may be empty
	Mid      string
	Offset   int64 // resume offset, 0 if none
	HasOff   bool
}

// line renders one proposal in its wire form:
//
//	FA <type> <size> <from> <to> <@routing> <mid>
//	FB <type> <size@off> <from> <to> <@routing> <mid>
//	FC <type> <mid> <size> <compressed-size>
func (p Proposal) line() string {
	switch p.Kind {
	case KindFC:
		return fmt.Sprintf("FC %c %s %d %d", p.MsgType, p.Mid, p.Size, p.CompSize)
	default:
		size := strconv.FormatInt(p.Size, 10)
		if p.HasOff {
			size = fmt.Sprintf("%d@%d", p.Size, p.Offset)
		}
		routing := p.Routing
		if routing != "" && !strings.HasPrefix(routing, "@") {
			routing = "@" + routing
		}
		return fmt.Sprintf("%s %c %s %s %s %s %s", p.Kind, p.MsgType, size, p.From, p.To, routing, p.Mid)
	}
}

// parseProposal parses one "FA"/"FB"/"FC" line.
func parseProposal(line string) (Proposal, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Proposal{}, fmt.Errorf("%w: short proposal line %q", ErrProtocol, line)
	}
	kind := Kind(fields[0])
	switch kind {
	case KindFA, KindFB:
		if len(fields) != 7 {
			return Proposal{}, fmt.Errorf("%w: proposal %q: want 7 fields, got %d", ErrProtocol, line, len(fields))
		}
		p := Proposal{Kind: kind, MsgType: fields[1][0], From: fields[3], To: fields[4], Routing: fields[5], Mid: fields[6]}
		sizeField := fields[2]
		if at := strings.IndexByte(sizeField, '@'); at >= 0 {
			size, err := strconv.ParseInt(sizeField[:at], 10, 64)
			if err != nil {
				return Proposal{}, fmt.Errorf("%w: proposal %q: bad size", ErrProtocol, line)
			}
			off, err := strconv.ParseInt(sizeField[at+1:], 10, 64)
			if err != nil {
				return Proposal{}, fmt.Errorf("%w: proposal %q: bad offset", ErrProtocol, line)
			}
			p.Size, p.Offset, p.HasOff = size, off, true
		} else {
			size, err := strconv.ParseInt(sizeField, 10, 64)
			if err != nil {
				return Proposal{}, fmt.Errorf("%w: proposal %q: bad size", ErrProtocol, line)
			}
			p.Size = size
		}
		return p, nil
	case KindFC:
		if len(fields) != 5 {
			return Proposal{}, fmt.Errorf("%w: proposal %q: want 5 fields, got %d", ErrProtocol, line, len(fields))
		}
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return Proposal{}, fmt.Errorf("%w: proposal %q: bad size", ErrProtocol, line)
		}
		compSize, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return Proposal{}, fmt.Errorf("%w: proposal %q: bad compressed size", ErrProtocol, line)
		}
		return Proposal{Kind: KindFC, MsgType: fields[1][0], Mid: fields[2], Size: size, CompSize: compSize}, nil
	default:
		// Unknown proposal kind: caller rejects with '=' rather than
		// aborting the session.
		return Proposal{}, fmt.Errorf("%w: unknown proposal kind %q", ErrProtocol, fields[0])
	}
}

// batchChecksum is the F> trailer: two uppercase hex digits of
// sum(batch_text_bytes) & 0xFF, where batch_text_bytes are the proposal
// lines (with their CRLF terminators) emitted before F>.
func batchChecksum(lines []string) string {
	var sum byte
	for _, l := range lines {
		for i := 0; i < len(l); i++ {
			sum += l[i]
		}
		sum += '\r'
		sum += '\n'
	}
	return strings.ToUpper(fmt.Sprintf("%02x", sum))
}

// Verdict is one character of an FS reply, plus the XFWD "!<offset>"
// extension (position-based per DESIGN.md Open Question decision 1: one
// verdict token per proposal, left to right).
type Verdict struct {
	Code   byte // '+','-','=','L','R','H','E', or '!' for resume-offset accept
	Offset int64
}

const (
	VerdictAccept        byte = '+'
	VerdictReject        byte = '-'
	VerdictRejectFormat  byte = '='
	VerdictAlreadyHave   byte = 'L'
	VerdictRejectResource byte = 'R'
	VerdictTrafficLimit  byte = 'H'
	VerdictError         byte = 'E'
	VerdictResumeOffset  byte = '!'
)

func (v Verdict) accepted() bool {
	return v.Code == VerdictAccept || v.Code == VerdictResumeOffset
}

// formatVerdicts renders an "FS " reply line from verdicts in order.
func formatVerdicts(vs []Verdict) string {
	var b strings.Builder
	b.WriteString("FS ")
	for _, v := range vs {
		if v.Code == VerdictResumeOffset {
			fmt.Fprintf(&b, "!%d", v.Offset)
		} else {
			b.WriteByte(v.Code)
		}
	}
	return b.String()
}

// parseVerdicts tokenizes the portion of an "FS " line following the
// prefix into exactly n verdicts, left to right.
func parseVerdicts(s string, n int) ([]Verdict, error) {
	var out []Verdict
	i := 0
	for i < len(s) {
		switch s[i] {
		case VerdictAccept, VerdictReject, VerdictRejectFormat, VerdictAlreadyHave,
			VerdictRejectResource, VerdictTrafficLimit, VerdictError:
			out = append(out, Verdict{Code: s[i]})
			i++
		case VerdictResumeOffset:
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("%w: malformed !offset verdict in %q", ErrProtocol, s)
			}
			off, err := strconv.ParseInt(s[i+1:j], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed !offset verdict in %q", ErrProtocol, s)
			}
			out = append(out, Verdict{Code: VerdictResumeOffset, Offset: off})
			i = j
		default:
			return nil, fmt.Errorf("%w: unknown verdict character %q in %q", ErrProtocol, s[i], s)
		}
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: FS reply has %d verdicts, want %d", ErrProtocol, len(out), n)
	}
	return out, nil
}
