package repository

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// pebbleLogger sends pebble's internal messages (WAL replay, compactions)
// through zap instead of the standard log package.
type pebbleLogger struct {
	logger *zap.Logger
}

func newPebbleLogger(logger *zap.Logger) pebble.Logger {
	return pebbleLogger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Fatalf exits the process, as pebble expects.
func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal(fmt.Sprintf(format, args...))
}
