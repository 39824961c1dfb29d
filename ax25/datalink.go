package ax25

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Default timer/window values.
const (
	DefaultT1          = 10 * time.Second
	DefaultMaxRetries  = 10
	DefaultWindow      = 4
	modulo        uint8 = 8
)

var (
	// ErrRefused is returned when a connect attempt is rejected with DM.
	ErrRefused = errors.New("ax25: connection refused (DM)")
	// ErrLinkFailure is returned when T1 expires MaxRetries times.
	ErrLinkFailure = errors.New("ax25: link failure, retries exhausted")
	// ErrClosed is returned from Send/Recv once the link has terminated.
	ErrClosed = errors.New("ax25: data link closed")
)

// FrameWriter is the one capability DataLink needs from whatever framing
// layer sits beneath it (KISS, AGWPE-as-raw-AX.25, or a test fake): the
// ability to emit one already-addressed AX.25 frame.
type FrameWriter interface {
	WriteFrame(f Frame) error
}

// unacked is one outstanding I-frame, kept for retransmission.
type unacked struct {
	ns      uint8
	payload []byte
}

// DataLink drives one AX.25 v2.0 connected-mode peer relationship: the
// SABM/UA/DISC/RR/RNR/REJ/I-frame state machine, a transmit window of
// unacknowledged I-frames, and the T1 retransmit timer. It is structured
// as one mutex-guarded struct, one state function per data-link state,
// and time.AfterFunc timers.
type DataLink struct {
	mu sync.Mutex

	Local Address
	Peer  Address
	Path  Path

	window      uint8
	t1Duration  time.Duration
	maxRetries  int

	writer FrameWriter
	log    *slog.Logger

	state State
	vs    uint8 // V(S)
	vr    uint8 // V(R)
	va    uint8 // V(A)
	retry int

	unackedQ []unacked
	pending  [][]byte
	recvBuf  bytes.Buffer
	rejSent  bool
	lastFinal bool
	peerBusy  bool

	pendingNR    uint8
	pendingFrame Frame

	t1 *time.Timer

	connected     chan struct{}
	connectedOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	err      error

	recvCond *sync.Cond

	onRetransmit func()
	onT1Expiry   func()
}

// Option configures a DataLink at construction time.
type Option func(*DataLink)

func WithWindow(n int) Option {
	return func(dl *DataLink) { dl.window = uint8(n) }
}

func WithT1(d time.Duration) Option {
	return func(dl *DataLink) { dl.t1Duration = d }
}

func WithMaxRetries(n int) Option {
	return func(dl *DataLink) { dl.maxRetries = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(dl *DataLink) {
		if l != nil {
			dl.log = l
		}
	}
}

// WithRetransmitHook registers fn to be called once per retransmitted frame:
// an SABM or RR poll re-sent after a T1 timeout, or an I-frame re-sent on
// leaving timer recovery or on receipt of REJ.
func WithRetransmitHook(fn func()) Option {
	return func(dl *DataLink) { dl.onRetransmit = fn }
}

// WithT1ExpiryHook registers fn to be called each time the T1 retransmit
// timer fires, before the retry is attempted.
func WithT1ExpiryHook(fn func()) Option {
	return func(dl *DataLink) { dl.onT1Expiry = fn }
}

// New creates a DataLink between local and peer, writing framed output via
// w. digi is the outgoing digipeater path (may be nil).
func New(local, peer Address, digi Path, w FrameWriter, opts ...Option) *DataLink {
	dl := &DataLink{
		Local:      local,
		Peer:       peer,
		Path:       digi,
		window:     DefaultWindow,
		t1Duration: DefaultT1,
		maxRetries: DefaultMaxRetries,
		writer:     w,
		log:        slog.Default(),
		state:      Disconnected,
		done:       make(chan struct{}),
		connected:  make(chan struct{}),
	}
	dl.recvCond = sync.NewCond(&dl.mu)
	for _, o := range opts {
		o(dl)
	}
	return dl
}

func (dl *DataLink) State() State {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.state
}

// Connect initiates an AX.25 connection (SABM) and blocks until the link is
// up, refused, or fails.
func (dl *DataLink) Connect() error {
	dl.mu.Lock()
	dl.spinFsm(inputUserConnect)
	dl.mu.Unlock()

	select {
	case <-dl.connected:
		return nil
	case <-dl.done:
		dl.mu.Lock()
		defer dl.mu.Unlock()
		err := dl.err
		dl.resetForReuse()
		return err
	}
}

// resetForReuse lets the same DataLink value be reconnected after a clean
// close or failure, replacing the done/connected channels.
func (dl *DataLink) resetForReuse() {
	dl.done = make(chan struct{})
	dl.connected = make(chan struct{})
	dl.connectedOnce = sync.Once{}
	dl.doneOnce = sync.Once{}
	dl.err = nil
}

func (dl *DataLink) markConnected() {
	dl.connectedOnce.Do(func() { close(dl.connected) })
}

// Close requests an orderly shutdown (DISC) if connected.
func (dl *DataLink) Close() error {
	dl.mu.Lock()
	if dl.state == Disconnected {
		dl.mu.Unlock()
		return nil
	}
	dl.spinFsm(inputUserClose)
	dl.mu.Unlock()
	<-dl.done
	return nil
}

// Send queues payload as one I-frame (payload is not split) and transmits
// queued I-frames that fit within the current window. It blocks only long
// enough to enqueue.
func (dl *DataLink) Send(payload []byte) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.state != Connected && dl.state != TimerRecovery {
		return fmt.Errorf("ax25: send while not connected (state=%s): %w", dl.state, ErrClosed)
	}
	dl.pending = append(dl.pending, payload)
	dl.spinFsm(inputUserData)
	return nil
}

// Recv returns up to n bytes of delivered I-frame payload, blocking until at
// least one byte is available or the link closes.
func (dl *DataLink) Recv(n int) ([]byte, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	for dl.recvBuf.Len() == 0 {
		select {
		case <-dl.done:
			if dl.recvBuf.Len() == 0 {
				return nil, ErrClosed
			}
		default:
		}
		dl.recvCond.Wait()
	}
	buf := make([]byte, n)
	k, _ := dl.recvBuf.Read(buf)
	return buf[:k], nil
}

// Input dispatches one received frame addressed to this link into the
// state machine. The demultiplexer (KISS/AGWPE layer) is responsible for
// routing frames by source/destination callsign before calling Input.
func (dl *DataLink) Input(f Frame) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.lastFinal = f.PollFinal

	switch f.Kind {
	case KindSABM:
		dl.spinFsm(inputRecvSABM)
	case KindUA:
		dl.spinFsm(inputRecvUA)
	case KindDM:
		dl.spinFsm(inputRecvDM)
	case KindDISC:
		dl.spinFsm(inputRecvDISC)
	case KindRR:
		dl.pendingNR = f.NR
		dl.spinFsm(inputRecvRR)
	case KindRNR:
		dl.pendingNR = f.NR
		dl.spinFsm(inputRecvRNR)
	case KindREJ:
		dl.pendingNR = f.NR
		dl.spinFsm(inputRecvREJ)
	case KindI:
		dl.pendingNR = f.NR
		dl.pendingFrame = f
		if f.NS == dl.vr {
			dl.spinFsm(inputRecvIInSeq)
		} else {
			dl.spinFsm(inputRecvIOutSeq)
		}
	}
}
