// Package radio drives the LoRa module between AT-command and
// transparent data mode, and provides the Port abstraction the rest of
// the protocol stack writes its records through.
package radio

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tarm/serial"
)

// Port is the bidirectional byte stream the protocol runs over. It is
// the seam the teacher project draws between "a real serial device" and
// "anything that behaves like one" (mock ports in tests, a Termux raw
// file descriptor, a loopback pipe).
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	// Flush discards any buffered, not-yet-read input.
	Flush() error
}

// Config mirrors the fixed link parameters from spec §6: 8N1, 9600 bps,
// no flow control. Only the device path and baud are ever varied.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig returns the link parameters spec.md §6 mandates.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// nativePort wraps github.com/tarm/serial, the library the teacher
// project already uses to talk to a real serial device.
type nativePort struct {
	port *serial.Port
}

// OpenNative opens a real serial device at cfg.Device/cfg.Baud.
func OpenNative(cfg Config) (Port, error) {
	sc := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	}
	p, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &nativePort{port: p}, nil
}

func (p *nativePort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *nativePort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *nativePort) Close() error                { return p.port.Close() }

// Flush is a no-op: tarm/serial does not expose a buffer flush, and
// ensure_data_mode's own reset_input_buffer step is satisfied instead by
// draining whatever is available before the next read (see mode.go).
func (p *nativePort) Flush() error {
	return nil
}

// Open selects a Port for device/baud, preferring the Termux USB path
// (spec §6) when TERMUX_USB_FD is set in the environment and falling
// back to a native tarm/serial open otherwise. Every CLI binary in
// cmd/ goes through this rather than choosing a Port type itself.
func Open(device string, baud int) (Port, error) {
	if fdStr := os.Getenv("TERMUX_USB_FD"); fdStr != "" {
		fd, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, fmt.Errorf("TERMUX_USB_FD=%q is not a valid file descriptor: %w", fdStr, err)
		}
		return WrapTermuxFD(fd)
	}

	cfg := DefaultConfig(device)
	cfg.Baud = baud
	return OpenNative(cfg)
}
