package transfer

import (
	"github.com/sirupsen/logrus"

	"lorafile/internal/chat"
	"lorafile/internal/frame"
	"lorafile/internal/metrics"
)

// Dispatcher is the single reader of spec §4.5: it owns a LineCodec-fed
// channel and routes every parsed Record to the active SenderSession,
// the active ReceiverSession, or the chat queue, in that rule order.
type Dispatcher struct {
	writer *Writer
	chat   *chat.Queue
	opts   ReceiverOptions
	stats  *metrics.Stats
	log    *logrus.Entry

	sender   *SenderSession
	receiver *ReceiverSession

	// OnReceiverStart, if set, is invoked (from the dispatcher's own
	// goroutine) whenever a FILE record starts a new ReceiverSession,
	// letting a long-running `receive` process observe each transfer.
	OnReceiverStart func(*ReceiverSession)
}

// NewDispatcher constructs a Dispatcher writing ACK/NACK/OK/ABORT
// traffic for inbound transfers through writer, and routing unmatched
// lines to a chat queue of the given capacity.
func NewDispatcher(writer *Writer, opts ReceiverOptions, stats *metrics.Stats, log *logrus.Entry, chatCapacity int) *Dispatcher {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Dispatcher{
		writer: writer,
		chat:   chat.NewQueue(chatCapacity),
		opts:   opts,
		stats:  stats,
		log:    log,
	}
}

// Chat returns the dispatcher's chat sink.
func (d *Dispatcher) Chat() *chat.Queue {
	return d.chat
}

// SetSender installs s as the active SenderSession. Pass nil to clear
// it once a transfer finishes. I4 forbids more than one at a time; the
// caller, not the dispatcher, is responsible for that invariant.
func (d *Dispatcher) SetSender(s *SenderSession) {
	d.sender = s
}

// Run consumes lines (as produced by codec.Lines) until the channel
// closes, which happens when the underlying port read fails or returns
// EOF — the abrupt-teardown cancellation contract of spec §5.
func (d *Dispatcher) Run(lines <-chan string) {
	for line := range lines {
		rec, ok := frame.Parse(line)
		if !ok {
			d.log.WithField("line", line).Debug("dropping malformed control record")
			continue
		}
		d.dispatch(rec)
	}
}

// dispatch applies the exact rule order of spec §4.5.
func (d *Dispatcher) dispatch(rec frame.Record) {
	if d.sender != nil && isSenderFacing(rec) {
		d.sender.Deliver(rec)
		return
	}
	if rec.Kind == frame.File && d.receiver == nil {
		d.receiver = StartReceiver(rec, d.writer, d.opts, d.stats, d.log)
		if d.OnReceiverStart != nil {
			d.OnReceiverStart(d.receiver)
		}
		return
	}
	if d.receiver != nil && isReceiverFacing(rec) {
		d.receiver.Deliver(rec)
		if rec.Kind == frame.Done || rec.Kind == frame.Abort {
			d.receiver = nil
		}
		return
	}
	d.chat.Push(rec.Encode())
}

func isSenderFacing(rec frame.Record) bool {
	switch rec.Kind {
	case frame.Ack, frame.Nack, frame.OK, frame.Abort:
		return true
	default:
		return false
	}
}

func isReceiverFacing(rec frame.Record) bool {
	switch rec.Kind {
	case frame.Data, frame.Done, frame.Abort:
		return true
	default:
		return false
	}
}
