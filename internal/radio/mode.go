package radio

import (
	"strings"
	"time"
)

// ModeState is the radio module's operating mode, process-global for a
// given Port but modeled here as state owned by a Controller value
// rather than a hidden global (spec §9).
type ModeState int

const (
	Unknown ModeState = iota
	Data
	AT
)

// escapeGuard is the minimum delay the module's firmware requires
// between emitting the +++ escape and observing a mode change. Tunable
// upward, never downward (spec §4.2).
const escapeGuard = 500 * time.Millisecond

const (
	respEntryAT = "Entry AT"
	respExitAT  = "Exit AT"
)

// Controller drives a Port between AT-command and transparent data
// mode via the +++ toggle escape, and always leaves it in data mode
// when a public method returns (I5).
type Controller struct {
	port  Port
	state ModeState
}

// NewController wraps port; the initial state is Unknown until the
// first EnsureDataMode call.
func NewController(port Port) *Controller {
	return &Controller{port: port, state: Unknown}
}

// State reports the last-observed ModeState.
func (c *Controller) State() ModeState {
	return c.state
}

// EnsureDataMode flushes stale input, toggles the escape sequence, and
// leaves the module in data mode. It never returns an error: the
// module's response is advisory, and "nothing or other" is treated as
// "already in data mode" per spec §4.2.
func (c *Controller) EnsureDataMode() {
	c.drain()
	c.port.Write([]byte("+++\r\n"))
	time.Sleep(escapeGuard)
	resp := string(c.drain())

	switch {
	case strings.Contains(resp, respEntryAT):
		c.port.Write([]byte("+++\r\n"))
		time.Sleep(escapeGuard)
		c.drain()
		c.state = Data
	case strings.Contains(resp, respExitAT):
		c.state = Data
	default:
		c.state = Data
	}

	c.port.Flush()
}

// ReadConfig requires ModeState == Data on entry, transitions to AT,
// requests AT+HELP, collects the response for escapeGuard, then
// transitions back to Data before returning. If entry to AT mode fails
// (no "Entry AT" observed), it returns ("", false) and leaves the state
// at Data.
func (c *Controller) ReadConfig() (string, bool) {
	if c.state != Data {
		c.EnsureDataMode()
	}

	c.port.Write([]byte("+++\r\n"))
	time.Sleep(escapeGuard)
	resp := string(c.drain())
	if !strings.Contains(resp, respEntryAT) {
		c.state = Data
		return "", false
	}
	c.state = AT

	c.port.Write([]byte("AT+HELP\r\n"))
	payload := string(c.drain())
	time.Sleep(escapeGuard)
	payload += string(c.drain())

	c.port.Write([]byte("+++\r\n"))
	time.Sleep(escapeGuard)
	c.drain()
	c.state = Data

	return payload, true
}

// drain reads whatever is currently available without blocking past the
// port's configured read deadline, discarding a Flush()'s worth of
// stale bytes or collecting a response's worth of fresh ones.
func (c *Controller) drain() []byte {
	buf := make([]byte, 512)
	n, _ := c.port.Read(buf)
	if n <= 0 {
		return nil
	}
	return buf[:n]
}
