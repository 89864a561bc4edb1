package transfer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"lorafile/internal/frame"
)

func TestChunkifyBoundaries(t *testing.T) {
	if got := chunkify(nil, 150); got != nil {
		t.Fatalf("chunkify(nil) = %v, want nil", got)
	}
	if got := chunkify([]byte("a"), 150); len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("chunkify(1 byte) = %v", got)
	}
	data := bytes.Repeat([]byte("x"), 300)
	got := chunkify(data, 150)
	if len(got) != 2 || len(got[0]) != 150 || len(got[1]) != 150 {
		t.Fatalf("exact-multiple chunking = %d chunks, lens %d/%d", len(got), len(got[0]), len(got[1]))
	}
}

func TestZeroByteFileTransfersWithNoDataRecords(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, nil, nil)

	sess := NewSenderSession(h.senderDisp.writer, testSenderOptions(), nil, nil)
	h.senderDisp.SetSender(sess)

	outcome := sess.Send("empty.txt", nil)
	if !outcome.Success {
		t.Fatalf("Send() failed: %s", outcome.Reason)
	}
	result := <-h.receiverDone
	if !result.Success {
		t.Fatalf("receive failed: %s", result.Reason)
	}
	got, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected zero-byte file, got %d bytes", len(got))
	}
}

func TestSingleByteFileIsOneChunk(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, nil, nil)

	sess := NewSenderSession(h.senderDisp.writer, testSenderOptions(), nil, nil)
	h.senderDisp.SetSender(sess)

	outcome := sess.Send("one.bin", []byte{0x42})
	if !outcome.Success {
		t.Fatalf("Send() failed: %s", outcome.Reason)
	}
	result := <-h.receiverDone
	if !result.Success {
		t.Fatalf("receive failed: %s", result.Reason)
	}
	got, _ := os.ReadFile(result.Path)
	if !bytes.Equal(got, []byte{0x42}) {
		t.Fatalf("got %v, want [0x42]", got)
	}
}

func TestFilenameWithSpacesAndUnicodePreservedOnDisk(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, nil, nil)

	sess := NewSenderSession(h.senderDisp.writer, testSenderOptions(), nil, nil)
	h.senderDisp.SetSender(sess)

	name := "my résumé final (draft).txt"
	outcome := sess.Send(name, []byte("content"))
	if !outcome.Success {
		t.Fatalf("Send() failed: %s", outcome.Reason)
	}
	result := <-h.receiverDone
	if filepath.Base(result.Path) != name {
		t.Fatalf("Path = %s, want basename %q", result.Path, name)
	}
}

func TestSenderDiscardsUnrelatedAck(t *testing.T) {
	dir := t.TempDir()
	// toSenderMutate passes every line through unchanged and only notes
	// that ACK:1 went by; the stray ACK:5 is handed to the session
	// directly below, and the sender must ignore it and still complete.
	injectedOnce := false
	toSenderMutate := func(line string) (string, bool) {
		if line == "ACK:1" && !injectedOnce {
			injectedOnce = true
		}
		return line, true
	}
	h := newHarness(t, dir, nil, toSenderMutate)

	sess := NewSenderSession(h.senderDisp.writer, testSenderOptions(), nil, nil)
	h.senderDisp.SetSender(sess)
	// Feed a stray ACK for a sequence nobody is waiting on yet; it must
	// be silently discarded rather than corrupt the session.
	stray, ok := frame.Parse("ACK:5")
	if !ok {
		t.Fatal("test bug: ACK:5 failed to parse")
	}
	sess.Deliver(stray)

	outcome := sess.Send("stray.bin", []byte("hello"))
	if !outcome.Success {
		t.Fatalf("Send() failed: %s", outcome.Reason)
	}
}
