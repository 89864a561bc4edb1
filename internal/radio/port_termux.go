//go:build linux

package radio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// termuxPort wraps a pre-opened, pre-authorized raw file descriptor, the
// shape termux-usb hands a process via TERMUX_USB_FD (spec §6). Unlike
// OpenNative, the descriptor must be put into raw 8N1 mode by hand with
// termios ioctls, the same primitive Daedaluz-goserial's port_linux.go
// uses to drive a real tty.
type termuxPort struct {
	f *os.File
	fd int
}

// WrapTermuxFD configures fd for 8N1/9600bps raw I/O and wraps it as a
// Port. fd is owned by the caller's environment (termux-usb), not opened
// here.
func WrapTermuxFD(fd int) (Port, error) {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("get termios on fd %d: %w", fd, err)
	}

	t.Iflag = 0
	t.Oflag = 0
	t.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Lflag = 0
	t.Ispeed = unix.B9600
	t.Ospeed = unix.B9600
	// VMIN=0, VTIME=1 (0.1s): non-blocking-style reads with a short
	// deadline, matching lora_termux.py's setup_serial.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 1

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return nil, fmt.Errorf("set termios on fd %d: %w", fd, err)
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return nil, fmt.Errorf("flush fd %d: %w", fd, err)
	}

	return &termuxPort{f: os.NewFile(uintptr(fd), "termux-usb"), fd: fd}, nil
}

func (p *termuxPort) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *termuxPort) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *termuxPort) Close() error                { return p.f.Close() }

func (p *termuxPort) Flush() error {
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH)
}
