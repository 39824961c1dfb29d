package ax25

// fsmInput and fsmState mirror the state-machine idiom used throughout this
// codebase's transaction layers: a state is a method bound to *DataLink that
// consumes one input and returns the next input to apply (FsmInputNone ends
// the spin), exactly as teacher's sip/transaction_*_fsm.go structures its
// client/server transaction FSMs.
type fsmInput int

type fsmState func(in fsmInput) fsmInput

const (
	FsmInputNone fsmInput = iota
	inputUserConnect
	inputUserData
	inputUserClose
	inputRecvSABM
	inputRecvUA
	inputRecvDM
	inputRecvDISC
	inputRecvIInSeq
	inputRecvIOutSeq
	inputRecvRR
	inputRecvRNR
	inputRecvREJ
	inputTimerT1
	inputTimerT1MaxRetry
)

func (i fsmInput) String() string {
	switch i {
	case inputUserConnect:
		return "user_connect"
	case inputUserData:
		return "user_data"
	case inputUserClose:
		return "user_close"
	case inputRecvSABM:
		return "recv_SABM"
	case inputRecvUA:
		return "recv_UA"
	case inputRecvDM:
		return "recv_DM"
	case inputRecvDISC:
		return "recv_DISC"
	case inputRecvIInSeq:
		return "recv_I_inseq"
	case inputRecvIOutSeq:
		return "recv_I_outseq"
	case inputRecvRR:
		return "recv_RR"
	case inputRecvRNR:
		return "recv_RNR"
	case inputRecvREJ:
		return "recv_REJ"
	case inputTimerT1:
		return "timer_T1"
	case inputTimerT1MaxRetry:
		return "timer_T1_max_retry"
	default:
		return "none"
	}
}

// State is a connected-mode data-link state.
type State int

const (
	Disconnected State = iota
	AwaitingConnect
	Connected
	TimerRecovery
	AwaitingRelease
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case AwaitingConnect:
		return "AwaitingConnect"
	case Connected:
		return "Connected"
	case TimerRecovery:
		return "TimerRecovery"
	case AwaitingRelease:
		return "AwaitingRelease"
	default:
		return "Unknown"
	}
}

func (dl *DataLink) spinFsm(in fsmInput) {
	for i := in; i != FsmInputNone; {
		dl.log.Debug("ax25 fsm", "peer", dl.Peer.String(), "state", dl.state.String(), "input", i.String())
		i = dl.currentStateFn()(i)
	}
}

func (dl *DataLink) currentStateFn() fsmState {
	switch dl.state {
	case Disconnected:
		return dl.stateDisconnected
	case AwaitingConnect:
		return dl.stateAwaitingConnect
	case Connected:
		return dl.stateConnected
	case TimerRecovery:
		return dl.stateTimerRecovery
	case AwaitingRelease:
		return dl.stateAwaitingRelease
	default:
		return dl.stateDisconnected
	}
}

func (dl *DataLink) stateDisconnected(in fsmInput) fsmInput {
	switch in {
	case inputUserConnect:
		dl.actSendSABM()
		dl.state = AwaitingConnect
	case inputRecvSABM:
		// Passive open: a remote station is calling us.
		dl.actAcceptSABM()
		dl.state = Connected
	default:
	}
	return FsmInputNone
}

func (dl *DataLink) stateAwaitingConnect(in fsmInput) fsmInput {
	switch in {
	case inputRecvUA:
		dl.actLinkUp()
		dl.state = Connected
	case inputRecvDM:
		dl.actReportRefused()
		dl.state = Disconnected
	case inputTimerT1:
		dl.actResendSABM()
		dl.state = AwaitingConnect
	case inputTimerT1MaxRetry:
		dl.actReportLinkFailure()
		dl.state = Disconnected
	default:
	}
	return FsmInputNone
}

func (dl *DataLink) stateConnected(in fsmInput) fsmInput {
	switch in {
	case inputUserData:
		dl.actSendIFrame()
	case inputRecvIInSeq:
		dl.actDeliverAndAck()
	case inputRecvIOutSeq:
		dl.actSendREJ()
	case inputRecvRR:
		dl.actAckUpTo()
	case inputRecvRNR:
		dl.actHoldOutput()
	case inputRecvREJ:
		dl.actRetransmitFrom()
	case inputTimerT1:
		dl.actEnterRecovery()
		dl.state = TimerRecovery
	case inputUserClose:
		dl.actSendDISC()
		dl.state = AwaitingRelease
	case inputRecvDISC:
		dl.actAcceptDISC()
		dl.state = Disconnected
	default:
	}
	return FsmInputNone
}

func (dl *DataLink) stateTimerRecovery(in fsmInput) fsmInput {
	switch in {
	case inputRecvRR, inputRecvRNR:
		if dl.lastFinal {
			dl.actResumeFromVA()
			dl.state = Connected
		}
	case inputRecvIInSeq:
		dl.actDeliverAndAck()
	case inputRecvIOutSeq:
		dl.actSendREJ()
	case inputTimerT1:
		dl.actResendRRPoll()
		dl.state = TimerRecovery
	case inputTimerT1MaxRetry:
		dl.actSendDMReportFailure()
		dl.state = Disconnected
	case inputUserClose:
		dl.actSendDISC()
		dl.state = AwaitingRelease
	case inputRecvDISC:
		dl.actAcceptDISC()
		dl.state = Disconnected
	default:
	}
	return FsmInputNone
}

func (dl *DataLink) stateAwaitingRelease(in fsmInput) fsmInput {
	switch in {
	case inputRecvUA, inputRecvDM:
		dl.actReportClosed()
		dl.state = Disconnected
	default:
	}
	return FsmInputNone
}
