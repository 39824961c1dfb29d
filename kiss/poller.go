package kiss

import (
	"time"
)

// DefaultPollInterval is the XKISS master-poll cadence.
const DefaultPollInterval = 100 * time.Millisecond

// StartPolling begins round-robin XKISS polling of slaves at interval
// (DefaultPollInterval if interval <= 0). Each tick emits one poll frame
// (addr<<4)|0x0E for the next slave address in sequence. Polling shares the
// Framer's write-path mutex with session traffic via WriteFrame, so polls
// and session writes never interleave mid-frame. Call StopPolling, or
// close the underlying transport, to stop.
func (fr *Framer) StartPolling(slaves []byte, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if len(slaves) == 0 {
		return
	}

	fr.pollStop = make(chan struct{})
	fr.pollDone = make(chan struct{})

	go func() {
		defer close(fr.pollDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-fr.pollStop:
				return
			case <-ticker.C:
				addr := slaves[i%len(slaves)]
				cmd := (addr << 4) | CmdPoll
				if err := fr.WriteFrame(cmd, nil); err != nil {
					fr.log.Warn("kiss poll write failed", "error", err)
					return
				}
				i++
			}
		}
	}()
}

// StopPolling halts the poll scheduler started by StartPolling and waits
// for its goroutine to exit. Safe to call even if polling was never
// started.
func (fr *Framer) StopPolling() {
	if fr.pollStop == nil {
		return
	}
	close(fr.pollStop)
	<-fr.pollDone
	fr.pollStop = nil
	fr.pollDone = nil
}

// SendParams emits the configured TXDelay/Persistence/SlotTime/TxTail/
// FullDuplex/Hardware parameter frames in wire order, at configuration
// time, skipping any marked Ignore.
func (fr *Framer) SendParams() error {
	type step struct {
		cmd    byte
		ignore bool
		value  []byte
	}
	steps := []step{
		{CmdTXDelay, fr.cfg.TXDelay.Ignore, []byte{fr.cfg.TXDelay.Value}},
		{CmdPersistence, fr.cfg.Persistence.Ignore, []byte{fr.cfg.Persistence.Value}},
		{CmdSlotTime, fr.cfg.SlotTime.Ignore, []byte{fr.cfg.SlotTime.Value}},
		{CmdTxTail, fr.cfg.TxTail.Ignore, []byte{fr.cfg.TxTail.Value}},
		{CmdFullDuplex, fr.cfg.FullDuplex.Ignore, []byte{fr.cfg.FullDuplex.Value}},
		{CmdHardware, fr.cfg.Hardware.Ignore, fr.cfg.Hardware.Value},
	}
	for _, s := range steps {
		if s.ignore {
			continue
		}
		if err := fr.WriteFrame((fr.cfg.TNCAddr<<4)|s.cmd, s.value); err != nil {
			return err
		}
	}
	return nil
}
