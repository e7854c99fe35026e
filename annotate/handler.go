// Package annotate renders log records as CI workflow commands
// ("::error file=x::message") so that per-file diagnostics surface in the
// CI run summary.
package annotate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LevelNotice sits between Info and Warn and renders as a "notice"
// annotation. Plain Info records are written as ordinary output lines.
const LevelNotice = slog.Level(2)

// Attribute keys that become annotation properties instead of message text.
const (
	FileKey  = "file"
	LineKey  = "line"
	TitleKey = "title"
)

var propertyKeys = []string{FileKey, LineKey, TitleKey}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
}

// Handler is a slog.Handler writing workflow commands:
//
//	Debug  -> ::debug::msg
//	Info   -> msg
//	Notice -> ::notice file=...::msg
//	Warn   -> ::warning file=...::msg
//	Error  -> ::error file=...::msg
//
// Attributes named file, line and title become command properties; any other
// attribute is appended to the message as key=value.
type Handler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	return newHandler(w, &sync.Mutex{}, opts)
}

func newHandler(w io.Writer, mu *sync.Mutex, opts *HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{w: w, mu: mu, level: level}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	props := map[string]string{}
	var extras []string

	for _, a := range h.attrs {
		h.collectAttr("", a, props, &extras)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.collectAttr(h.prefix, a, props, &extras)
		return true
	})

	msg := r.Message
	if len(extras) > 0 {
		msg = msg + " " + strings.Join(extras, " ")
	}

	var line string
	if command := commandFor(r.Level); command == "" {
		line = msg
	} else {
		line = formatCommand(command, props, msg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, prefixed(h.prefix, a))
	}
	return &clone
}

// WithGroup returns a handler that qualifies subsequent attribute keys with
// name. Grouped attributes never become annotation properties.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *Handler) collectAttr(prefix string, a slog.Attr, props map[string]string, extras *[]string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.collectAttr(groupPrefix, ga, props, extras)
		}
		return
	}
	if prefix == "" && isPropertyKey(a.Key) {
		props[a.Key] = a.Value.String()
		return
	}
	*extras = append(*extras, fmt.Sprintf("%s%s=%s", prefix, a.Key, a.Value.String()))
}

// prefixed records attrs added after WithGroup under their qualified key.
func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	return slog.Attr{Key: strings.TrimSuffix(prefix, "."), Value: slog.GroupValue(a)}
}

func isPropertyKey(key string) bool {
	for _, k := range propertyKeys {
		if k == key {
			return true
		}
	}
	return false
}

func commandFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= LevelNotice:
		return "notice"
	case level >= slog.LevelInfo:
		return ""
	default:
		return "debug"
	}
}

func formatCommand(command string, props map[string]string, msg string) string {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(command)
	first := true
	for _, key := range propertyKeys {
		value, ok := props[key]
		if !ok || value == "" {
			continue
		}
		if first {
			b.WriteByte(' ')
			first = false
		} else {
			b.WriteByte(',')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escapeProperty(value))
	}
	b.WriteString("::")
	b.WriteString(escapeData(msg))
	return b.String()
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, ",", "%2C")
}

var _ slog.Handler = (*Handler)(nil)
