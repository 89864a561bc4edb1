// Command lora-file sends or receives a single file over a DX-LR02 LoRa
// link using the stop-and-wait transfer protocol in lorafile/internal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"lorafile/internal/applog"
	"lorafile/internal/codec"
	"lorafile/internal/metrics"
	"lorafile/internal/radio"
	"lorafile/internal/transfer"
)

var (
	device      = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud        = flag.Int("baud", 9600, "Baud rate")
	chunkSize   = flag.Int("chunk-size", 150, "DATA record payload size in bytes")
	ackTimeout  = flag.Duration("ack-timeout", 0, "Per-record ACK timeout (0 uses the built-in default)")
	maxRetries  = flag.Int("max-retries", 0, "Transmissions per record, first send included, before giving up (0 uses the built-in default)")
	receiveDir  = flag.String("receive-dir", "./lora_received", "Directory incoming files are written to")
	metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus /metrics on (empty disables it)")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	log := applog.New(*verbose)

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	port, err := radio.Open(*device, *baud)
	if err != nil {
		fail(log, "open serial port: %v", err)
	}
	defer port.Close()

	ctrl := radio.NewController(port)
	ctrl.EnsureDataMode()

	stats := setupMetrics(log)

	switch args[0] {
	case "send":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		runSend(log, port, stats, args[1])
	case "receive":
		runReceive(log, port, stats)
	default:
		usage()
		os.Exit(1)
	}
}

func runSend(log *logrus.Logger, port radio.Port, stats *metrics.Stats, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fail(log, "read %s: %v", path, err)
	}

	writer := transfer.NewWriter(port)
	disp := transfer.NewDispatcher(writer, transfer.DefaultReceiverOptions(), stats, log.WithField("role", "sender"), 64)

	opts := transfer.DefaultSenderOptions()
	opts.ChunkSize = *chunkSize
	if *ackTimeout > 0 {
		opts.AckTimeout = *ackTimeout
	}
	if *maxRetries > 0 {
		opts.MaxRetries = *maxRetries
	}

	sender := transfer.NewSenderSession(writer, opts, stats, log.WithField("role", "sender"))
	disp.SetSender(sender)

	lines := codec.Lines(port)
	go disp.Run(lines)

	outcome := sender.Send(path, data)
	if !outcome.Success {
		fail(log, "transfer failed: %s", outcome.Reason)
	}
	fmt.Println("transfer complete")
}

func runReceive(log *logrus.Logger, port radio.Port, stats *metrics.Stats) {
	opts := transfer.DefaultReceiverOptions()
	opts.ReceiveDir = *receiveDir

	writer := transfer.NewWriter(port)
	disp := transfer.NewDispatcher(writer, opts, stats, log.WithField("role", "receiver"), 64)

	result := make(chan transfer.ReceiveResult, 1)
	disp.OnReceiverStart = func(rs *transfer.ReceiverSession) {
		go func() { result <- <-rs.Done }()
	}

	lines := codec.Lines(port)
	fmt.Println("waiting for an incoming file...")
	go disp.Run(lines)

	r := <-result
	if !r.Success {
		fail(log, "receive failed: %s", r.Reason)
	}
	fmt.Printf("received %s\n", r.Path)
}

func setupMetrics(log *logrus.Logger) *metrics.Stats {
	if *metricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	stats := metrics.NewStats(reg)
	go func() {
		if err := metrics.Serve(*metricsAddr, reg); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return stats
}

func fail(log *logrus.Logger, format string, args ...interface{}) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lora-file [flags] send <path> | receive")
	flag.PrintDefaults()
}
