// Package logger provides prefixed, colored leveled loggers for the
// application components, backed by zap.
package logger

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logging surface shared by all components.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type zapLogger struct {
	prefix string
	color  string
	l      *zap.Logger
}

// New creates a Logger that writes colored, prefixed console lines to out.
// The prefix identifies the owning component (e.g. "APP", "GAME-SERVER").
func New(prefix, color string, out io.Writer) (Logger, error) {
	if prefix == "" {
		return nil, errors.New("logger prefix must not be empty")
	}
	if out == nil {
		return nil, errors.New("logger output must not be nil")
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(out),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)

	return &zapLogger{
		prefix: prefix,
		color:  color,
		l:      zap.New(core),
	}, nil
}

func (z *zapLogger) format(msg string) string {
	const reset = "\033[0m"
	return fmt.Sprintf("%s[%s]%s %s", z.color, z.prefix, reset, msg)
}

func (z *zapLogger) Debug(msg string) { z.l.Debug(z.format(msg)) }

func (z *zapLogger) Info(msg string) { z.l.Info(z.format(msg)) }

func (z *zapLogger) Warn(msg string) { z.l.Warn(z.format(msg)) }

func (z *zapLogger) Error(msg string) { z.l.Error(z.format(msg)) }
