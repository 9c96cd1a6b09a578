// Package logger builds the zap loggers used by the coordinator and the simulator.
package logger

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to f, or stdout when f is empty, at the given level.
// A disabled logger discards everything.
func New(f string, level string, disable bool) (*zap.Logger, error) {
	if disable {
		return zap.NewNop(), nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log: invalid level %q", level)
	}

	out := zapcore.Lock(os.Stdout)
	if f != "" {
		const fileMode = 0600
		file, err := os.OpenFile(f, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
		if err != nil {
			return nil, errors.Wrap(err, "log: failed to open log file")
		}
		out = zapcore.Lock(file)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), out, lvl)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
