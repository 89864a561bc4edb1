package transfer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"lorafile/internal/crc16"
	"lorafile/internal/frame"
	"lorafile/internal/metrics"
)

// SenderOptions parameterizes one outbound transfer. The CLI and the
// (out of scope) GUI front-end use different profiles; spec §4.6 names
// both explicitly, so both constructors are kept even though only the
// CLI ships here.
type SenderOptions struct {
	ChunkSize  int
	AckTimeout time.Duration
	MaxRetries int

	// EmitDelay is the courtesy pause after each record, a radio
	// duty-cycle nicety per spec §4.6, not a correctness requirement.
	// Zero disables it (useful in tests).
	EmitDelay time.Duration
}

// DefaultSenderOptions matches the CLI defaults in spec §4.6.
func DefaultSenderOptions() SenderOptions {
	return SenderOptions{
		ChunkSize:  150,
		AckTimeout: 10 * time.Second,
		MaxRetries: 5,
		EmitDelay:  100 * time.Millisecond,
	}
}

// GUISenderOptions matches the GUI-variant profile spec §4.6 documents.
func GUISenderOptions() SenderOptions {
	opts := DefaultSenderOptions()
	opts.ChunkSize = 100
	opts.AckTimeout = 15 * time.Second
	return opts
}

type senderState int

const (
	senderIdle senderState = iota
	senderSendingHeader
	senderSendingChunks
	senderSendingDone
	senderComplete
	senderFailed
)

// SenderSession is the outbound transfer state machine from spec §4.6.
// At most one is active per port (I4); its ackCh is owned for the
// lifetime of exactly one transfer, per spec §9's ACK-waiting note.
type SenderSession struct {
	opts   SenderOptions
	writer *Writer
	ackCh  chan frame.Record
	stats  *metrics.Stats
	log    *logrus.Entry
	state  senderState
}

// NewSenderSession constructs a sender bound to writer. stats and log
// may be nil.
func NewSenderSession(writer *Writer, opts SenderOptions, stats *metrics.Stats, log *logrus.Entry) *SenderSession {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &SenderSession{
		opts:   opts,
		writer: writer,
		ackCh:  make(chan frame.Record, 1),
		stats:  stats,
		log:    log,
		state:  senderIdle,
	}
}

// Deliver is called by the ReceiveDispatcher for every ACK:*, NACK:*,
// OK, and ABORT record while this session is active (spec §4.5 rule 1).
func (s *SenderSession) Deliver(r frame.Record) {
	select {
	case s.ackCh <- r:
	default:
		// The one-slot buffer already holds a record nobody has read
		// yet (e.g. a stray duplicate OK after the session already
		// finished), so this one is dropped. Dropping it is correct:
		// spec §9 explicitly calls a late DONE's OK harmless.
	}
}

// Send runs the full header/chunks/done exchange for data named
// filename (basename applied before transmission, per spec §6). It
// blocks until the transfer completes or fails unrecoverably; it takes
// no context and has no cancel path of its own.
func (s *SenderSession) Send(filename string, data []byte) Outcome {
	name := filepath.Base(filename)
	fileCRC := crc16.HexString(data)
	chunks := chunkify(data, s.opts.ChunkSize)
	total := len(chunks)

	s.state = senderSendingHeader
	header := frame.Record{Kind: frame.File, Filename: name, TotalChunks: uint32(total), FileSize: uint64(len(data))}
	ok, aborted := s.emitWithRetries(header, func() (bool, bool) { return s.waitForAckSeq(0) })
	if aborted {
		s.state = senderFailed
		return Outcome{false, "receiver aborted during header exchange"}
	}
	if !ok {
		s.state = senderFailed
		return Outcome{false, "no ACK:0 for header after retries"}
	}

	s.state = senderSendingChunks
	for i, chunk := range chunks {
		seq := uint32(i + 1)
		rec := frame.Record{Kind: frame.Data, Seq: seq, CRCHex: crc16.HexString(chunk), Payload: chunk}
		s.stats.ChunkSent()
		ok, aborted := s.emitWithRetries(rec, func() (bool, bool) { return s.waitForAckSeq(seq) })
		if ok {
			s.stats.ChunkAcked(len(chunk))
			continue
		}
		if aborted {
			s.state = senderFailed
			return Outcome{false, fmt.Sprintf("receiver aborted on chunk %d", seq)}
		}
		s.writer.Write(frame.Record{Kind: frame.Abort})
		s.state = senderFailed
		return Outcome{false, fmt.Sprintf("chunk %d failed after %d attempts", seq, s.opts.MaxRetries)}
	}

	s.state = senderSendingDone
	done := frame.Record{Kind: frame.Done, FileCRCHex: fileCRC}
	ok, aborted = s.emitWithRetries(done, func() (bool, bool) { return s.waitForOK() })
	if aborted {
		s.state = senderFailed
		return Outcome{false, "receiver aborted during DONE exchange"}
	}
	if !ok {
		s.state = senderFailed
		return Outcome{false, "no OK for DONE after retries"}
	}

	s.state = senderComplete
	return Outcome{true, ""}
}

// emitWithRetries transmits rec up to MaxRetries times, stopping the
// moment wait reports success or a receiver-initiated abort. NACK and
// timeout are both retry triggers (spec §5); an unexpected record
// discarded inside wait does not reset the per-record timeout.
func (s *SenderSession) emitWithRetries(rec frame.Record, wait func() (ok bool, aborted bool)) (ok bool, aborted bool) {
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			s.stats.Retried()
			s.log.WithField("attempt", attempt+1).Debugf("retrying %s", rec.Encode())
		}
		s.writer.Write(rec)
		if s.opts.EmitDelay > 0 {
			time.Sleep(s.opts.EmitDelay)
		}
		if ok, aborted := wait(); aborted {
			return false, true
		} else if ok {
			return true, false
		}
	}
	return false, false
}

// waitForAckSeq blocks until ACK:<seq> (success), NACK:<seq> or timeout
// (retry), or ABORT (immediate receiver-initiated abort). Records for a
// different seq, or OK records (irrelevant here), are discarded without
// resetting the deadline.
func (s *SenderSession) waitForAckSeq(seq uint32) (ok bool, aborted bool) {
	deadline := time.Now().Add(s.opts.AckTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, false
		}
		select {
		case r := <-s.ackCh:
			switch r.Kind {
			case frame.Ack:
				if r.AckSeq == seq {
					return true, false
				}
			case frame.Nack:
				if r.AckSeq == seq {
					s.stats.Nacked()
					return false, false
				}
			case frame.Abort:
				return false, true
			}
		case <-time.After(remaining):
			return false, false
		}
	}
}

// waitForOK blocks until OK (success) or ABORT (immediate abort);
// anything else is discarded without resetting the deadline.
func (s *SenderSession) waitForOK() (ok bool, aborted bool) {
	deadline := time.Now().Add(s.opts.AckTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, false
		}
		select {
		case r := <-s.ackCh:
			switch r.Kind {
			case frame.OK:
				return true, false
			case frame.Abort:
				return false, true
			}
		case <-time.After(remaining):
			return false, false
		}
	}
}
