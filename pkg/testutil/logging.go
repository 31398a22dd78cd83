package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Importing this package silences the standard logger unless tests run with
// -v. Everything is logged when they do.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			return
		}
	}
	logrus.SetOutput(io.Discard)
}

// DisableLogging discards standard logger output until the returned function
// is called.
func DisableLogging() (reset func()) {
	original := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	return func() {
		logrus.SetOutput(original)
	}
}
