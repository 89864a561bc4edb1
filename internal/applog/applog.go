// Package applog sets up the logrus logger cmd/lora-file uses for
// operator-facing diagnostics beyond the single
// mandated success/failure line, grounded on
// runZeroInc-conniver/cmd/get/main.go's direct logrus.Infof/Errorf
// usage — the one complete-repo precedent for CLI logging in this pack.
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text-formatted logger writing to stderr so stdout stays
// free for the protocol's own progress lines.
func New(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   false,
		TimestampFormat: "15:04:05",
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
