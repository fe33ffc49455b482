// Package logging holds the shared logrus logger. Packages alias it as
// `var log = logging.Log` and tag messages with a short "area: " prefix.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger.
var Log = logrus.New()

// Configure applies level and format (text or json). Unknown levels fall back to info.
func Configure(level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if out != nil {
		Log.SetOutput(out)
	}
}
