//go:build !linux

package radio

import "fmt"

// WrapTermuxFD is unavailable outside linux: the termios ioctls it needs
// are linux-specific (see port_termux.go). Kept as a stub rather than a
// build-tag hole so callers can select the Termux path purely on the
// TERMUX_USB_FD environment variable, per spec §6, without their own
// per-platform branching.
func WrapTermuxFD(fd int) (Port, error) {
	return nil, fmt.Errorf("termux USB file descriptor support requires linux")
}
