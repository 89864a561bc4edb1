// Command lora-config dumps a DX-LR02 module's AT+HELP output without
// changing any setting. Grounded on original_source/lora_config.py.
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

	fmt.Printf("LoRa Config - reading from %s\n\n", *device)

	port, err := radio.Open(*device, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open serial port: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	ctrl := radio.NewController(port)
	ctrl.EnsureDataMode()

	payload, ok := ctrl.ReadConfig()
	if !ok {
		fmt.Fprintln(os.Stderr, "failed to enter AT mode")
		os.Exit(1)
	}

	fmt.Println("=== Module Configuration ===")
	fmt.Println(payload)
}
