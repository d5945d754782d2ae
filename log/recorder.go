package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Entry is one record captured by a Recorder. Attribute values are kept in
// their string form.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder is a slog.Handler that keeps records in memory. Tests use it to
// assert on what the host logged.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   map[string]string
	group   string
	level   slog.Level
}

// NewRecorder creates a Recorder accepting records at or above level.
func NewRecorder(level slog.Level) *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}, level: level}
}

// Enabled implements slog.Handler.
func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

// Handle implements slog.Handler.
func (r *Recorder) Handle(_ context.Context, record slog.Record) error {
	e := Entry{Level: record.Level, Message: record.Message, Attrs: map[string]string{}}
	for k, v := range r.attrs {
		e.Attrs[k] = v
	}
	record.Attrs(func(a slog.Attr) bool {
		r.put(e.Attrs, a)
		return true
	})

	r.mu.Lock()
	*r.entries = append(*r.entries, e)
	r.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *r
	n.attrs = make(map[string]string, len(r.attrs)+len(attrs))
	for k, v := range r.attrs {
		n.attrs[k] = v
	}
	for _, a := range attrs {
		r.put(n.attrs, a)
	}
	return &n
}

// WithGroup implements slog.Handler.
func (r *Recorder) WithGroup(name string) slog.Handler {
	n := *r
	if n.group != "" {
		name = n.group + "." + name
	}
	n.group = name
	return &n
}

// Entries returns a copy of the captured records.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Find returns the captured records with the given message.
func (r *Recorder) Find(message string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Message == message {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) put(dst map[string]string, a slog.Attr) {
	prefix := ""
	if r.group != "" {
		prefix = r.group + "."
	}
	flatten(dst, prefix, a)
}

// flatten stores a under prefix+key, expanding groups into dotted keys.
func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			flatten(dst, prefix+a.Key+".", ga)
		}
		return
	}
	dst[prefix+a.Key] = attrString(a.Value)
}

// attrString renders a resolved attribute value.
func attrString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindFloat64:
		return fmt.Sprintf("%g", v.Float64())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		a := v.Any()
		if a == nil {
			return "<nil>"
		}
		if err, ok := a.(error); ok {
			return err.Error()
		}
		if s, ok := a.(fmt.Stringer); ok {
			return s.String()
		}
		if data, err := json.Marshal(a); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", a)
	default:
		return v.String()
	}
}
