// Command lora-reset forces a DX-LR02 module back into data mode,
// for use when a prior AT session left it stuck. Grounded on
// original_source/lora_reset.py.
package main

import (
	"flag"
	"fmt"
	"os"

	"lorafile/internal/radio"
)

var (
	device = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud   = flag.Int("baud", 9600, "Baud rate")
)

func main() {
	flag.Parse()

	fmt.Printf("Resetting module on %s...\n", *device)

	port, err := radio.Open(*device, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open serial port: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	ctrl := radio.NewController(port)
	ctrl.EnsureDataMode()

	fmt.Println("module is now in data mode (ready to send/receive)")
}
