// Package logging builds the zap loggers used across the module.
//
// Components never reach for a global logger: they take a *zap.Logger
// through an option and default to zap.NewNop().
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/atomspace/internal/errors"
)

// Standard field names for structured logging.
const (
	FieldToken     = "token"
	FieldMode      = "mode"
	FieldState     = "state"
	FieldCount     = "count"
	FieldSteps     = "steps"
	FieldComponent = "component"
	FieldClauses   = "clauses"
	FieldQuery     = "query"
	FieldPath      = "path"
	FieldErrorCode = "error_code"
)

// Options selects the encoder, level and sink.
type Options struct {
	JSON   bool
	Level  string    // debug|info|warn|error, default info
	Writer io.Writer // default os.Stderr
}

// New returns a logger for the given options. JSON output uses zap's
// production encoder; otherwise a compact console encoder is used.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// ParseLevel maps a level name onto a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, errors.Newf("unknown log level %q", name)
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
