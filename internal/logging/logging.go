// Package logging configures the process-wide zerolog logger used by the
// server and the operator commands.
package logging

import (
	"cmp"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tbourn/go-shipment-tracker/internal/config"
)

// DefaultService is the "service" field when none is configured.
const DefaultService = "shipment-tracker"

// ParseLevel maps LOG_LEVEL onto a zerolog level. Matching ignores case and
// surrounding space, "warning" is accepted for warn, and anything unknown
// (including "") is info. "disabled" and "trace" are passed through.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewLogWriter returns a size-rotated file sink, or nil when no path is set.
func NewLogWriter(cfg config.LogFileConfig) io.WriteCloser {
	if cfg.Path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// Setup installs the global zerolog logger: stdout (pretty in dev) plus an
// optional rotating file. log.Ctx falls back to it for contexts that carry
// no request logger. The returned closer flushes the file sink.
func Setup(cfg config.Config, service string) io.Closer {
	zerolog.SetGlobalLevel(ParseLevel(cfg.LogLevel))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var stdout io.Writer = os.Stdout
	if cfg.LogPretty {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	out := stdout
	var closer io.Closer = nopCloser{}
	if fw := NewLogWriter(cfg.LogFile); fw != nil {
		out = zerolog.MultiLevelWriter(stdout, fw)
		closer = fw
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", cmp.Or(strings.TrimSpace(service), DefaultService)).
		Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
