// Package debug provides logging and block profiling for DSP graphs and hosts.
package debug

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvDebug switches the shared logger to debug level when set to a non-empty value.
const EnvDebug = "XDDSP_DEBUG"

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = New()
	})
	return logger
}

// New creates a logger writing text records to stderr. The level is Info
// unless EnvDebug is set.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv(EnvDebug) != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Logger().WithField("component", name)
}
