package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"lorafile/internal/crc16"
	"lorafile/internal/frame"
	"lorafile/internal/metrics"
)

// ReceiverOptions parameterizes where materialized files land.
type ReceiverOptions struct {
	ReceiveDir string
}

// DefaultReceiverOptions matches the CLI default in spec §6.
func DefaultReceiverOptions() ReceiverOptions {
	return ReceiverOptions{ReceiveDir: "./lora_received"}
}

type receiverState int

const (
	receiverReceiving receiverState = iota
	receiverDone
	receiverFailed
)

// ReceiverSession is the inbound transfer state machine from spec §4.7.
// It is constructed the moment a FILE record arrives and owned entirely
// by the dispatcher's single reader goroutine — no locking needed (I4).
type ReceiverSession struct {
	opts ReceiverOptions
	writer *Writer
	stats  *metrics.Stats
	log    *logrus.Entry

	filename     string
	totalChunks  uint32
	fileSize     uint64
	chunks       map[uint32][]byte
	nextExpected uint32
	state        receiverState

	// Done fires exactly once, carrying the session's final Outcome and,
	// on success, the path the file was written to.
	Done chan ReceiveResult
}

// ReceiveResult is what a ReceiverSession reports on completion.
type ReceiveResult struct {
	Outcome
	Path string
}

// StartReceiver begins a new session for an incoming FILE record,
// allocating the chunk store and ACKing the header (spec §4.7).
func StartReceiver(fileRec frame.Record, writer *Writer, opts ReceiverOptions, stats *metrics.Stats, log *logrus.Entry) *ReceiverSession {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	rs := &ReceiverSession{
		opts:         opts,
		writer:       writer,
		stats:        stats,
		log:          log,
		filename:     fileRec.Filename,
		totalChunks:  fileRec.TotalChunks,
		fileSize:     fileRec.FileSize,
		chunks:       make(map[uint32][]byte),
		nextExpected: 1,
		state:        receiverReceiving,
		Done:         make(chan ReceiveResult, 1),
	}
	writer.Write(frame.Record{Kind: frame.Ack, AckSeq: 0})
	// A zero-chunk transfer (I1's empty-file allowance) needs no further
	// DATA records; the next delivered record is expected to be DONE.
	return rs
}

// Deliver is called by the dispatcher for every DATA, DONE, and ABORT
// record while this session is active (spec §4.5 rule 3).
func (rs *ReceiverSession) Deliver(r frame.Record) {
	if rs.state != receiverReceiving {
		// Session already finished. The dispatcher stops routing to a
		// session once it has delivered DONE or ABORT (a later stray
		// DONE goes to the chat queue), so this only catches records
		// handed to a finished session directly; they are logged and
		// ignored.
		rs.log.WithField("record", r.Encode()).Debug("record for finished receiver session, ignoring")
		return
	}
	switch r.Kind {
	case frame.Data:
		rs.handleData(r)
	case frame.Done:
		rs.handleDone(r)
	case frame.Abort:
		rs.finish(Outcome{false, "aborted by sender"}, "")
	}
}

func (rs *ReceiverSession) handleData(r frame.Record) {
	if r.Payload == nil {
		rs.writer.Write(frame.Record{Kind: frame.Nack, AckSeq: r.Seq})
		rs.stats.Nacked()
		return
	}
	actual := crc16.HexString(r.Payload)
	if actual != r.CRCHex {
		rs.writer.Write(frame.Record{Kind: frame.Nack, AckSeq: r.Seq})
		rs.stats.Nacked()
		return
	}

	// Overwriting an existing seq is idempotent: a validated CRC means
	// identical bytes, so a retransmit of an already-stored chunk is
	// harmless (spec §4.7).
	rs.chunks[r.Seq] = r.Payload
	rs.writer.Write(frame.Record{Kind: frame.Ack, AckSeq: r.Seq})
	rs.stats.ChunkAcked(len(r.Payload))

	if r.Seq == rs.nextExpected {
		for {
			if _, ok := rs.chunks[rs.nextExpected]; !ok {
				break
			}
			rs.nextExpected++
		}
	}
}

func (rs *ReceiverSession) handleDone(r frame.Record) {
	for seq := uint32(1); seq <= rs.totalChunks; seq++ {
		if _, ok := rs.chunks[seq]; !ok {
			rs.writer.Write(frame.Record{Kind: frame.Abort})
			rs.finish(Outcome{false, fmt.Sprintf("missing chunk %d at DONE", seq)}, "")
			return
		}
	}

	data := make([]byte, 0, rs.fileSize)
	for seq := uint32(1); seq <= rs.totalChunks; seq++ {
		data = append(data, rs.chunks[seq]...)
	}

	actual := crc16.HexString(data)
	if actual != r.FileCRCHex {
		rs.writer.Write(frame.Record{Kind: frame.Abort})
		rs.finish(Outcome{false, fmt.Sprintf("whole-file CRC mismatch: got %s want %s", actual, r.FileCRCHex)}, "")
		return
	}

	path, err := materialize(rs.opts.ReceiveDir, rs.filename, data)
	if err != nil {
		rs.writer.Write(frame.Record{Kind: frame.Abort})
		rs.finish(Outcome{false, fmt.Sprintf("materialize: %v", err)}, "")
		return
	}

	rs.writer.Write(frame.Record{Kind: frame.OK})
	rs.finish(Outcome{true, ""}, path)
}

func (rs *ReceiverSession) finish(outcome Outcome, path string) {
	if outcome.Success {
		rs.state = receiverDone
	} else {
		rs.state = receiverFailed
	}
	select {
	case rs.Done <- ReceiveResult{Outcome: outcome, Path: path}:
	default:
	}
}

// materialize writes data under dir using basename(filename), atomically
// (temp file + rename), inserting a numeric suffix before the extension
// on collision (spec §4.7, I6).
func materialize(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	safe := filepath.Base(filename)
	path := collisionFreePath(dir, safe)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// collisionFreePath returns dir/name, or dir/name_1, dir/name_2, ...
// (suffix before the extension) for the first path that does not exist.
func collisionFreePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
