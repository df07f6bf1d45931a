package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFSender delivers a GELF message; *gelf.Writer satisfies it.
type GELFSender interface {
	WriteMessage(m *gelf.Message) error
}

// NewGELFWriter dials a Graylog UDP input.
func NewGELFWriter(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("gelf writer %s: %w", addr, err)
	}
	return w, nil
}

// GELFHandler is a slog.Handler that turns each record into a GELF message.
// Attributes become additional fields, prefixed with the group path.
type GELFHandler struct {
	sender GELFSender
	host   string
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

func NewGELFHandler(sender GELFSender, host string, level slog.Leveler) *GELFHandler {
	if host == "" {
		host, _ = os.Hostname()
	}
	return &GELFHandler{sender: sender, host: host, level: level}
}

func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.group, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return h.sender.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Extra:    extra,
	})
}

func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

func addExtra(extra map[string]interface{}, prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addExtra(extra, key, ga)
		}
		return
	}
	// GELF reserves the id field
	if key == "id" {
		key = "id_"
	}
	if err, ok := v.Any().(error); ok {
		extra["_"+key] = err.Error()
		return
	}
	extra["_"+key] = v.Any()
}

// syslog severities
const (
	severityError   int32 = 3
	severityWarning int32 = 4
	severityInfo    int32 = 6
	severityDebug   int32 = 7
)

func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return severityError
	case l >= slog.LevelWarn:
		return severityWarning
	case l >= slog.LevelInfo:
		return severityInfo
	default:
		return severityDebug
	}
}
