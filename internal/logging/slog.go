package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// replaced in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

const instrumentationName = "railsim"

// SlogManager manages slog-based logging with optional OTel and GELF output.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	context atomic.Pointer[ContextProvider]
}

// Option configures extra outputs of Setup.
type Option func(*setupOptions)

type setupOptions struct {
	gelf GELFSender
	host string
}

// WithGELF sends every record to a Graylog input as well.
func WithGELF(sender GELFSender, host string) Option {
	return func(o *setupOptions) {
		o.gelf = sender
		o.host = host
	}
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file when given and
// to stdout otherwise. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	lvl := parseLevel(level)
	m.logProvider = provider

	var so setupOptions
	for _, opt := range opts {
		opt(&so)
	}

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if so.gelf != nil {
		handlers = append(handlers, NewGELFHandler(so.gelf, so.host, lvl))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	handler := NewContextHandler(NewMultiHandler(handlers...), m.contextAttrs)

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// SetContextProvider installs the source of attributes added to every record,
// e.g. the current game time. It may be called after Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context.Store(&p)
}

func (m *SlogManager) contextAttrs() []slog.Attr {
	p := m.context.Load()
	if p == nil || *p == nil {
		return nil
	}
	return (*p)()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
