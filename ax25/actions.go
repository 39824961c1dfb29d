package ax25

import (
	"fmt"
	"time"
)

// Actions are invoked with dl.mu already held (spinFsm is only ever called
// under the lock), mirroring teacher's spinFsmUnsafe/act* split where action
// methods never re-lock.

func (dl *DataLink) frame(kind FrameKind) Frame {
	return Frame{
		Dest:        dl.Peer,
		Src:         dl.Local,
		Digipeaters: dl.Path,
		Kind:        kind,
	}
}

func (dl *DataLink) write(f Frame) {
	if err := dl.writer.WriteFrame(f); err != nil {
		dl.log.Warn("ax25 write failed", "peer", dl.Peer.String(), "error", err)
	}
}

func (dl *DataLink) startT1() {
	dl.stopT1()
	dl.t1 = time.AfterFunc(dl.t1Duration, func() {
		dl.mu.Lock()
		defer dl.mu.Unlock()
		if dl.onT1Expiry != nil {
			dl.onT1Expiry()
		}
		dl.retry++
		if dl.retry >= dl.maxRetries {
			dl.spinFsm(inputTimerT1MaxRetry)
			return
		}
		dl.spinFsm(inputTimerT1)
	})
}

func (dl *DataLink) stopT1() {
	if dl.t1 != nil {
		dl.t1.Stop()
		dl.t1 = nil
	}
}

func (dl *DataLink) finish(err error) {
	dl.err = err
	dl.unackedQ = nil
	dl.pending = nil
	dl.stopT1()
	dl.doneOnce.Do(func() { close(dl.done) })
	dl.recvCond.Broadcast()
}

// --- Disconnected / AwaitingConnect ---

func (dl *DataLink) actSendSABM() {
	dl.retry = 0
	dl.vs, dl.vr, dl.va = 0, 0, 0
	f := dl.frame(KindSABM)
	f.PollFinal = true
	dl.write(f)
	dl.startT1()
}

func (dl *DataLink) actResendSABM() {
	if dl.onRetransmit != nil {
		dl.onRetransmit()
	}
	f := dl.frame(KindSABM)
	f.PollFinal = true
	dl.write(f)
	dl.startT1()
}

func (dl *DataLink) actAcceptSABM() {
	dl.vs, dl.vr, dl.va = 0, 0, 0
	f := dl.frame(KindUA)
	f.PollFinal = dl.lastFinal
	dl.write(f)
	dl.markConnected()
	dl.log.Debug("ax25 link accepted inbound SABM", "peer", dl.Peer.String())
}

func (dl *DataLink) actLinkUp() {
	dl.stopT1()
	dl.vs, dl.vr, dl.va = 0, 0, 0
	dl.markConnected()
	dl.log.Debug("ax25 link up", "peer", dl.Peer.String())
}

func (dl *DataLink) actReportRefused() {
	dl.finish(fmt.Errorf("ax25: SABM to %s refused: %w", dl.Peer.String(), ErrRefused))
}

func (dl *DataLink) actReportLinkFailure() {
	dl.finish(fmt.Errorf("ax25: connect to %s: %w", dl.Peer.String(), ErrLinkFailure))
}

// --- Connected ---

func (dl *DataLink) actSendIFrame() {
	if dl.peerBusy {
		return
	}
	for len(dl.pending) > 0 && dl.windowHasRoom() {
		payload := dl.pending[0]
		dl.pending = dl.pending[1:]

		f := dl.frame(KindI)
		f.NS = dl.vs
		f.NR = dl.vr
		f.PID = PIDNone
		f.Payload = payload
		dl.write(f)

		dl.unackedQ = append(dl.unackedQ, unacked{ns: dl.vs, payload: payload})
		dl.vs = (dl.vs + 1) % modulo
		if dl.t1 == nil {
			dl.startT1()
		}
	}
}

func (dl *DataLink) windowHasRoom() bool {
	outstanding := (dl.vs - dl.va + modulo) % modulo
	return outstanding < dl.window
}

func (dl *DataLink) actDeliverAndAck() {
	dl.recvBuf.Write(dl.pendingFrame.Payload)
	dl.vr = (dl.vr + 1) % modulo
	dl.rejSent = false
	dl.recvCond.Broadcast()

	f := dl.frame(KindRR)
	f.NR = dl.vr
	dl.write(f)
}

func (dl *DataLink) actSendREJ() {
	if dl.rejSent {
		return
	}
	dl.rejSent = true
	f := dl.frame(KindREJ)
	f.NR = dl.vr
	dl.write(f)
}

func (dl *DataLink) actAckUpTo() {
	dl.peerBusy = false
	dl.ackUpTo(dl.pendingNR)
	if dl.va == dl.vs {
		dl.stopT1()
	} else {
		dl.startT1()
	}
	dl.actSendIFrame()
}

// ackUpTo discards unacked I-frames with N(S) in [old V(A), nr), the
// RR/REJ/I-frame piggyback acknowledgement rule.
func (dl *DataLink) ackUpTo(nr uint8) {
	dl.va = nr
	kept := dl.unackedQ[:0]
	for _, u := range dl.unackedQ {
		if distanceMod8(nr, u.ns) < distanceMod8(nr, dl.vs) {
			kept = append(kept, u)
		}
	}
	dl.unackedQ = kept
	dl.retry = 0
}

// distanceMod8 is the forward modulo-8 distance from `from` to `to`.
func distanceMod8(from, to uint8) uint8 {
	return (to - from + modulo) % modulo
}

func (dl *DataLink) actHoldOutput() {
	dl.ackUpTo(dl.pendingNR)
	dl.peerBusy = true
	// T1 remains running on any still-outstanding I-frame.
}

func (dl *DataLink) actRetransmitFrom() {
	dl.ackUpTo(dl.pendingNR)
	for _, u := range dl.unackedQ {
		f := dl.frame(KindI)
		f.NS = u.ns
		f.NR = dl.vr
		f.PID = PIDNone
		f.Payload = u.payload
		dl.write(f)
		if dl.onRetransmit != nil {
			dl.onRetransmit()
		}
	}
	dl.startT1()
}

func (dl *DataLink) actEnterRecovery() {
	f := dl.frame(KindRR)
	f.NR = dl.vr
	f.PollFinal = true
	dl.write(f)
	dl.startT1()
}

func (dl *DataLink) actSendDISC() {
	f := dl.frame(KindDISC)
	f.PollFinal = true
	dl.write(f)
	dl.startT1()
}

func (dl *DataLink) actAcceptDISC() {
	f := dl.frame(KindUA)
	f.PollFinal = dl.lastFinal
	dl.write(f)
	dl.finish(nil)
}

// --- TimerRecovery ---

func (dl *DataLink) actResumeFromVA() {
	dl.stopT1()
	dl.ackUpTo(dl.pendingNR)
	for _, u := range dl.unackedQ {
		f := dl.frame(KindI)
		f.NS = u.ns
		f.NR = dl.vr
		f.PID = PIDNone
		f.Payload = u.payload
		dl.write(f)
		if dl.onRetransmit != nil {
			dl.onRetransmit()
		}
	}
	if len(dl.unackedQ) > 0 {
		dl.startT1()
	}
}

func (dl *DataLink) actResendRRPoll() {
	if dl.onRetransmit != nil {
		dl.onRetransmit()
	}
	f := dl.frame(KindRR)
	f.NR = dl.vr
	f.PollFinal = true
	dl.write(f)
	dl.startT1()
}

func (dl *DataLink) actSendDMReportFailure() {
	f := dl.frame(KindDM)
	dl.write(f)
	dl.finish(fmt.Errorf("ax25: link to %s lost: %w", dl.Peer.String(), ErrLinkFailure))
}

// --- AwaitingRelease ---

func (dl *DataLink) actReportClosed() {
	dl.finish(nil)
}
