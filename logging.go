package cachesc

import "github.com/sirupsen/logrus"

// logger is the package-wide structured logger. Nothing on the
// measurement path (prime, probe, access-time primitives) logs; this is
// only used by the initialisation checks in config.go, mirroring the fact that io.h's PRINT_LINE macros in the
// original library are only ever called outside timing-critical loops.
var logger logrus.FieldLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLogger overrides the package logger, e.g. so a caller embedding
// this library in a larger attack harness can route its output through
// their own logrus instance with shared fields (target process, run id).
func SetLogger(l logrus.FieldLogger) {
	logger = l
}
