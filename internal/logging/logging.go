package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	timeLayout = "2006-01-02 15:04:05,000"
	separator  = " - "
)

// New builds the process logger. Output goes to stderr so stdout carries
// only the report.
func New(level string, debug bool) (*zap.Logger, error) {
	return newLogger(zapcore.Lock(os.Stderr), level, debug)
}

func newLogger(out zapcore.WriteSyncer, level string, debug bool) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	core := zapcore.NewCore(newEncoder(), out, zap.NewAtomicLevelAt(lvl))
	opts := []zap.Option{zap.ErrorOutput(out)}
	if debug {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// layoutEncoder writes "time - name - LEVEL - message" followed by the
// console encoding of any fields. zap's console encoder fixes the order of
// level and name, so the prefix is folded into the message instead.
type layoutEncoder struct {
	zapcore.Encoder
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.NameKey = ""
	cfg.CallerKey = ""
	cfg.FunctionKey = ""
	cfg.ConsoleSeparator = separator
	return layoutEncoder{zapcore.NewConsoleEncoder(cfg)}
}

func (e layoutEncoder) Clone() zapcore.Encoder {
	return layoutEncoder{e.Encoder.Clone()}
}

func (e layoutEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	name := ent.LoggerName
	if name == "" {
		name = "root"
	}
	ent.Message = strings.Join([]string{
		ent.Time.Format(timeLayout), name, ent.Level.CapitalString(), ent.Message,
	}, separator)
	return e.Encoder.EncodeEntry(ent, fields)
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
