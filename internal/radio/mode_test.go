package radio

import (
	"sync"
	"testing"
)

// fakePort is a minimal in-memory Port whose script of canned responses
// is returned one at a time on each Read, regardless of what was
// written. It exists purely to drive Controller's state transitions
// without a real module attached.
type fakePort struct {
	mu        sync.Mutex
	responses [][]byte
	writes    []string
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return 0, nil
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	n := copy(b, next)
	return n, nil
}

func (p *fakePort) Close() error { return nil }
func (p *fakePort) Flush() error { return nil }

func TestEnsureDataModeFromATExitsToData(t *testing.T) {
	port := &fakePort{responses: [][]byte{[]byte(""), []byte("Entry AT\r\n"), []byte("")}}
	c := NewController(port)
	c.EnsureDataMode()
	if c.State() != Data {
		t.Fatalf("State() = %v, want Data", c.State())
	}
}

func TestEnsureDataModeFromExitATStaysData(t *testing.T) {
	port := &fakePort{responses: [][]byte{[]byte(""), []byte("Exit AT\r\n")}}
	c := NewController(port)
	c.EnsureDataMode()
	if c.State() != Data {
		t.Fatalf("State() = %v, want Data", c.State())
	}
}

func TestEnsureDataModeUnknownAssumesData(t *testing.T) {
	port := &fakePort{}
	c := NewController(port)
	c.EnsureDataMode()
	if c.State() != Data {
		t.Fatalf("State() = %v, want Data", c.State())
	}
}

func TestReadConfigReturnsPayloadAndRestoresData(t *testing.T) {
	port := &fakePort{responses: [][]byte{
		[]byte(""),                    // EnsureDataMode's initial flush read
		[]byte("Exit AT\r\n"),         // initial EnsureDataMode
		[]byte("Entry AT\r\n"),        // ReadConfig's entry toggle
		[]byte("AT+HELP config text"), // AT+HELP payload
		[]byte(""),
		[]byte("Exit AT\r\n"), // exit toggle
	}}
	c := NewController(port)
	c.EnsureDataMode()

	payload, ok := c.ReadConfig()
	if !ok {
		t.Fatal("ReadConfig() returned ok=false")
	}
	if payload == "" {
		t.Fatal("ReadConfig() returned empty payload")
	}
	if c.State() != Data {
		t.Fatalf("State() after ReadConfig = %v, want Data", c.State())
	}
}

func TestReadConfigFailsEntryLeavesData(t *testing.T) {
	port := &fakePort{responses: [][]byte{
		[]byte(""),            // EnsureDataMode's initial flush read
		[]byte("Exit AT\r\n"), // initial EnsureDataMode
		[]byte(""),            // ReadConfig's entry toggle: no "Entry AT"
	}}
	c := NewController(port)
	c.EnsureDataMode()

	_, ok := c.ReadConfig()
	if ok {
		t.Fatal("ReadConfig() unexpectedly succeeded")
	}
	if c.State() != Data {
		t.Fatalf("State() = %v, want Data", c.State())
	}
}
