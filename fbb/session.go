// Package fbb implements the FBB/B2F session engine: SID negotiation, the
// proposal/FS batch loop, authentication challenge-response, resume/offset
// accounting, traffic limiting, and reverse-forwarding role inversion,
// driven over any transport.Transport.
//
// Session.Connect is one synchronous read/write loop over the transport;
// the engine itself is strictly sequential, with no concurrent readers or
// writers of the wire.
package fbb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/n4xyz/gofbb/ax25"
	"github.com/n4xyz/gofbb/b2f"
	"github.com/n4xyz/gofbb/transport"
)

// maxBatch is the maximum proposal entries per F> batch.
const maxBatch = 5

// SessionConfig is a plain value record, layered with functional Options.
type SessionConfig struct {
	Program string // our SID program identifier, e.g. "GOFBB"
	Version string // our SID version string, e.g. "1.0"

	Callsign string
	SSID     int

	// Secret is the shared auth secret used to answer a peer's ;PQ
	// challenge. Empty means we cannot authenticate, and a challenge
	// arriving fails the session with ErrAuth.
	Secret string

	// TrafficCap, in bytes, bounds how much body data we accept from a
	// peer in the acceptor role before replying 'H' to further proposals;
	// 0 means unbounded. Asserting it also sets our own SID's H flag.
	TrafficCap int64

	// MaxPayload bounds declared B2F header Body+File totals on receive;
	// 0 means unbounded.
	MaxPayload int

	// UseGzip opts into the gzip alternative to LZHUF when both peers
	// assert the 'G' capability.
	UseGzip bool

	// EnableReverse, once our own queue drains, emits FF to invite the
	// peer to propose its own traffic.
	EnableReverse bool

	// RequestReverseFirst emits FR at session start, asking the peer to
	// forward first.
	RequestReverseFirst bool

	// ResumeGet/ResumePut are the surrounding application's persisted
	// resume-offset hooks. Both may be nil.
	ResumeGet func(mid string) (offset int64, ok bool)
	ResumePut func(mid string, offset int64)
}

// Option configures a Session at construction time.
type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session drives one FBB/B2F forwarding session over a transport.Transport.
type Session struct {
	cfg       SessionConfig
	transport transport.Transport
	log       *slog.Logger
	id        string

	br          *bufio.Reader
	pendingLine *string

	peerSID SID
	outbound []*queued
	received []*b2f.Message

	bytesSentSession     int64
	bytesReceivedSession int64
}

// NewSession validates cfg and constructs a Session over t.
func NewSession(t transport.Transport, cfg SessionConfig, opts ...Option) (*Session, error) {
	if cfg.Program == "" {
		cfg.Program = "GOFBB"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if _, err := ax25.NewAddress(cfg.Callsign, cfg.SSID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	s := &Session{
		cfg:       cfg,
		transport: t,
		log:       DefaultLogger(),
		id:        uuid.NewString(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "fbb", "session", s.id)
	return s, nil
}

// Queue adds one outbound message to the session's forwarding queue. Must
// be called before Connect; the queue is not safe for concurrent use
// during Connect.
func (s *Session) Queue(o *Outbound) {
	s.outbound = append(s.outbound, newQueued(o))
}

func (s *Session) ourCaps() Capabilities {
	return Capabilities{
		FBBBasic:         true,
		Binary:           true,
		B1:               true,
		TrafficLimit:     s.cfg.TrafficCap > 0,
		ProposalChecksum: true,
		XFWD:             true,
		Gzip:             s.cfg.UseGzip,
		Terminated:       true,
	}
}

func (s *Session) resumeOffset(mid string) (int64, bool) {
	if s.cfg.ResumeGet == nil {
		return 0, false
	}
	return s.cfg.ResumeGet(mid)
}

// Connect opens the transport, negotiates the session, runs the
// offer/accept loop to completion, and returns the final report. It
// returns normally (with a possibly-partial Report) on any clean
// termination, including one driven by traffic limiting.
func (s *Session) Connect(ctx context.Context) (*Report, error) {
	sessionsStarted.Inc()

	if err := s.transport.Open(ctx); err != nil {
		sessionsClosed.WithLabelValues("transport-error").Inc()
		return s.Report(), fmt.Errorf("%w: open: %v", ErrTransport, err)
	}
	s.br = bufio.NewReader(s.transport)
	s.log.Debug("session started")

	err := s.run()
	if err != nil {
		s.log.Warn("session ending with error", "error", err)
		_ = s.transport.Close()
		sessionsClosed.WithLabelValues(outcomeFor(err)).Inc()
		return s.Report(), err
	}

	if cerr := s.transport.Close(); cerr != nil {
		sessionsClosed.WithLabelValues("transport-error").Inc()
		return s.Report(), fmt.Errorf("%w: close: %v", ErrTransport, cerr)
	}
	s.log.Debug("session closed cleanly")
	sessionsClosed.WithLabelValues("ok").Inc()
	return s.Report(), nil
}

func (s *Session) run() error {
	if err := s.sidExchange(); err != nil {
		return err
	}
	if err := s.authPhase(); err != nil {
		return err
	}

	if s.cfg.RequestReverseFirst {
		if err := s.writeLine("FR"); err != nil {
			return err
		}
		return s.acceptLoop()
	}

	if _, err := s.offerLoop(); err != nil {
		return err
	}
	if !s.cfg.EnableReverse {
		return s.writeLine("FQ")
	}
	if err := s.writeLine("FF"); err != nil {
		return err
	}
	return s.acceptLoop()
}

// Report returns the session's result so far; valid to call after Connect
// returns, whether or not it returned an error.
func (s *Session) Report() *Report {
	r := &Report{Received: s.received}
	for _, q := range s.outbound {
		r.Sent = append(r.Sent, q.result)
	}
	return r
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth-error"
	case errors.Is(err, ErrLink):
		return "link-error"
	case errors.Is(err, ErrProtocol):
		return "protocol-error"
	case errors.Is(err, ErrTransport):
		return "transport-error"
	default:
		return "error"
	}
}

// --- wire I/O -------------------------------------------------------------

func (s *Session) pushback(line string) { s.pendingLine = &line }

func (s *Session) readLine() (string, error) {
	if s.pendingLine != nil {
		l := *s.pendingLine
		s.pendingLine = nil
		return l, nil
	}
	line, err := s.br.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: read line: %v", ErrTransport, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Session) writeLine(line string) error {
	_, err := s.transport.Write([]byte(line + "\r\n"))
	if err != nil {
		return fmt.Errorf("%w: write line: %v", ErrTransport, err)
	}
	return nil
}

func (s *Session) writeRaw(b []byte) error {
	_, err := s.transport.Write(b)
	if err != nil {
		return fmt.Errorf("%w: write: %v", ErrTransport, err)
	}
	return nil
}

// --- SID / auth ------------------------------------------------------------

func (s *Session) sidExchange() error {
	line, err := s.readLine()
	if err != nil {
		return fmt.Errorf("reading peer SID: %w", err)
	}
	peer, err := ParseSID(line)
	if err != nil {
		return err
	}
	s.peerSID = peer
	if !peer.Caps.Terminated {
		s.log.Warn("peer SID missing '$' terminator, continuing non-conformant", "peer_sid", line)
	}

	ours := SID{Program: s.cfg.Program, Version: s.cfg.Version, Caps: s.ourCaps()}
	if err := s.writeLine(ours.String()); err != nil {
		return err
	}
	s.log.Debug("sid exchange complete", "peer_sid", peer.String(), "our_sid", ours.String())
	return nil
}

func (s *Session) authPhase() error {
	line, err := s.readLine()
	if err != nil {
		return fmt.Errorf("reading post-SID line: %w", err)
	}
	nonce, ok := isAuthChallenge(line)
	if !ok {
		s.pushback(line)
		return nil
	}
	if s.cfg.Secret == "" {
		return fmt.Errorf("%w: challenge %q received, no secret configured", ErrAuth, line)
	}
	s.log.Debug("auth challenge received", "nonce", nonce)
	return s.writeLine(authResponse(nonce, s.cfg.Secret))
}

// --- offerer role -----------------------------------------------------------

func (s *Session) nextBatch() []*queued {
	var batch []*queued
	for len(batch) < maxBatch && len(s.outbound) > 0 {
		q := s.outbound[0]
		s.outbound = s.outbound[1:]
		content := q.out.wireBody()
		if off, ok := s.resumeOffset(q.out.Msg.Mid); ok && off >= int64(len(content)) {
			// Resume offset == message size means it was already fully
			// delivered; never propose it again.
			q.result.Status = StatusAlreadyDelivered
			continue
		}
		batch = append(batch, q)
	}
	return batch
}

func (s *Session) buildProposal(q *queued) Proposal {
	content := q.out.wireBody()
	p := Proposal{
		Kind:    q.out.kind(),
		MsgType: byte(q.out.Msg.Type),
		From:    q.out.FromBBS,
		To:      q.out.ToBBS,
		Routing: q.out.Routing,
		Mid:     q.out.Msg.Mid,
		Size:    int64(len(content)),
	}
	if off, ok := s.resumeOffset(q.out.Msg.Mid); ok && off > 0 {
		p.HasOff = true
		p.Offset = off
	}
	if p.Kind == KindFC {
		compressor := chooseCompressor(s.cfg.UseGzip, s.ourCaps(), s.peerSID.Caps)
		p.CompSize = int64(len(compressor.Compress(content)))
	}
	return p
}

// offerLoop sends queued messages in batches of at most maxBatch, reading
// an FS reply per batch, until the queue drains or the peer's SID
// asserted H. It returns whether traffic limiting latched the session.
func (s *Session) offerLoop() (limited bool, err error) {
	for {
		batch := s.nextBatch()
		if len(batch) == 0 {
			return limited, nil
		}

		props := make([]Proposal, len(batch))
		lines := make([]string, len(batch))
		for i, q := range batch {
			props[i] = s.buildProposal(q)
			lines[i] = props[i].line()
		}
		for _, l := range lines {
			if err := s.writeLine(l); err != nil {
				return limited, err
			}
		}
		if err := s.writeLine("F> " + batchChecksum(lines)); err != nil {
			return limited, err
		}

		fsLine, err := s.readLine()
		if err != nil {
			return limited, err
		}
		if !strings.HasPrefix(fsLine, "FS") {
			return limited, fmt.Errorf("%w: expected FS reply, got %q", ErrProtocol, fsLine)
		}
		verdicts, err := parseVerdicts(strings.TrimSpace(strings.TrimPrefix(fsLine, "FS")), len(batch))
		if err != nil {
			return limited, err
		}

		peerLimited := s.peerSID.Caps.TrafficLimit
		for i, v := range verdicts {
			q := batch[i]
			proposalsByVerdict.WithLabelValues(string(rune(v.Code))).Inc()
			switch {
			case v.accepted():
				off := int64(0)
				if v.Code == VerdictResumeOffset {
					off = v.Offset
				}
				if err := s.sendBody(props[i], q, off); err != nil {
					return limited, err
				}
				q.result.Status = StatusSent
				if s.cfg.ResumePut != nil {
					s.cfg.ResumePut(q.out.Msg.Mid, props[i].Size)
				}
			case v.Code == VerdictTrafficLimit:
				q.result.Status = StatusLimited
				q.result.Err = ErrLimit
			case v.Code == VerdictAlreadyHave:
				q.result.Status = StatusAlreadyHave
			case v.Code == VerdictRejectResource:
				q.result.Status = StatusResourceRejected
			case v.Code == VerdictError:
				q.result.Status = StatusErrorRejected
			case v.Code == VerdictRejectFormat:
				q.result.Status = StatusFormatRejected
			default: // '-'
				if peerLimited {
					q.result.Status = StatusLimited
					q.result.Err = ErrLimit
				} else {
					q.result.Status = StatusRejected
				}
			}
		}

		if peerLimited {
			// Stop offering further batches once the peer has asserted H;
			// anything left in the queue is reported as limited rather
			// than sent.
			limited = true
			for _, q := range s.outbound {
				q.result.Status = StatusLimited
				q.result.Err = ErrLimit
			}
			s.outbound = nil
			return limited, nil
		}
	}
}

func (s *Session) sendBody(p Proposal, q *queued, offset int64) error {
	content := q.out.wireBody()
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	remaining := content[offset:]

	if p.Kind == KindFA {
		if err := s.writeRaw(remaining); err != nil {
			return err
		}
		if err := s.writeRaw([]byte{0x1A}); err != nil {
			return err
		}
	} else {
		compressor := chooseCompressor(s.cfg.UseGzip, s.ourCaps(), s.peerSID.Caps)
		framed := b2f.EncodeBlock(compressor.Compress(remaining))
		if err := s.writeRaw(framed); err != nil {
			return err
		}
	}
	bytesSent.Add(float64(len(remaining)))
	s.bytesSentSession += int64(len(remaining))
	return nil
}

// --- acceptor role ----------------------------------------------------------

func isProposalStart(line string) bool {
	return strings.HasPrefix(line, "FA ") || strings.HasPrefix(line, "FB ") || strings.HasPrefix(line, "FC ")
}

// acceptLoop reads the peer's traffic until FQ, handling proposal batches
// and the FF/FR role-inversion lines.
func (s *Session) acceptLoop() error {
	for {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		switch {
		case line == "FQ":
			return nil
		case line == "FF":
			if len(s.outbound) > 0 {
				if _, err := s.offerLoop(); err != nil {
					return err
				}
			}
			return s.writeLine("FQ")
		case line == "FR":
			if len(s.outbound) > 0 {
				if _, err := s.offerLoop(); err != nil {
					return err
				}
			}
			// Having forwarded (or had nothing to forward), keep reading
			// for whatever the peer sends next.
		case isProposalStart(line):
			if err := s.acceptBatch(line); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected line %q outside a proposal batch", ErrProtocol, line)
		}
	}
}

func (s *Session) decideVerdict(raw string) (Proposal, Verdict) {
	p, err := parseProposal(raw)
	if err != nil {
		s.log.Warn("rejecting unparseable proposal line", "line", raw, "error", err)
		return p, Verdict{Code: VerdictRejectFormat}
	}
	for _, r := range s.received {
		if r.Mid == p.Mid {
			return p, Verdict{Code: VerdictAlreadyHave}
		}
	}
	if s.cfg.TrafficCap > 0 && s.bytesReceivedSession+p.Size > s.cfg.TrafficCap {
		return p, Verdict{Code: VerdictTrafficLimit}
	}
	if off, ok := s.resumeOffset(p.Mid); ok && off > 0 && off < p.Size {
		return p, Verdict{Code: VerdictResumeOffset, Offset: off}
	}
	return p, Verdict{Code: VerdictAccept}
}

func (s *Session) rejectWholeBatch(n int) error {
	return s.writeLine("FS " + strings.Repeat(string(rune(VerdictRejectFormat)), n))
}

// acceptBatch reads proposal lines (firstLine already consumed by the
// caller) up to the terminating F> checksum line, verifies the checksum
// when both peers assert M, replies with per-entry verdicts, and streams
// in the accepted bodies.
func (s *Session) acceptBatch(firstLine string) error {
	lines := []string{firstLine}
	for {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, "F>") {
			declared := strings.TrimSpace(strings.TrimPrefix(line, "F>"))
			if s.ourCaps().ProposalChecksum && s.peerSID.Caps.ProposalChecksum {
				if !strings.EqualFold(declared, batchChecksum(lines)) {
					// Batch-checksum mismatch under M: reject the entire
					// batch with one FS reply of matching length.
					return s.rejectWholeBatch(len(lines))
				}
			}
			break
		}
		lines = append(lines, line)
		if len(lines) > maxBatch {
			return fmt.Errorf("%w: proposal batch exceeds %d entries", ErrProtocol, maxBatch)
		}
	}

	props := make([]Proposal, len(lines))
	verdicts := make([]Verdict, len(lines))
	for i, l := range lines {
		props[i], verdicts[i] = s.decideVerdict(l)
	}
	if err := s.writeLine(formatVerdicts(verdicts)); err != nil {
		return err
	}

	for i, v := range verdicts {
		proposalsByVerdict.WithLabelValues(string(rune(v.Code))).Inc()
		if !v.accepted() {
			continue
		}
		msg, err := s.recvBody(props[i])
		if err != nil {
			return err
		}
		s.received = append(s.received, msg)
		bytesReceived.Add(float64(props[i].Size))
		s.bytesReceivedSession += props[i].Size
		if s.cfg.ResumePut != nil {
			s.cfg.ResumePut(props[i].Mid, props[i].Size)
		}
	}
	return nil
}

func (s *Session) recvBody(p Proposal) (*b2f.Message, error) {
	if p.Kind == KindFA {
		raw, err := s.br.ReadBytes(0x1A)
		if err != nil {
			return nil, fmt.Errorf("%w: reading ascii body: %v", ErrTransport, err)
		}
		body := raw[:len(raw)-1]
		return &b2f.Message{
			Mid:  p.Mid,
			Type: b2f.Type(p.MsgType),
			From: p.From,
			To:   []string{p.To},
			Body: body,
		}, nil
	}

	compressed, err := b2f.DecodeBlock(s.br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	compressor := chooseCompressor(s.cfg.UseGzip, s.ourCaps(), s.peerSID.Caps)
	full, err := compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrProtocol, err)
	}
	msg, err := b2f.Parse(bytes.NewReader(full), b2f.ParseOptions{MaxPayload: s.cfg.MaxPayload})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return &msg, nil
}
