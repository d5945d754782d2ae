package log

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{" WARN ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, WithLevel(slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("shown", "path", "a.js")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "path=a.js")
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, WithJSON(true), WithSource(true))

	logger.Info("loading scripts", "root", "scripts")

	assert.Contains(t, buf.String(), `"msg":"loading scripts"`)
	assert.Contains(t, buf.String(), `"source":`)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(slog.LevelDebug)
	logger := slog.New(rec).With("engine", "goja").WithGroup("load")

	logger.Debug("creating namespace",
		"name", "ns",
		"depth", 2,
		"took", 5*time.Millisecond,
		"err", errors.New("boom"),
		slog.Group("entry", "kind", "namespace", slog.Group("pos", "line", 3)),
	)

	entries := rec.Find("creating namespace")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, slog.LevelDebug, e.Level)
	assert.Equal(t, "goja", e.Attrs["engine"])
	assert.Equal(t, "ns", e.Attrs["load.name"])
	assert.Equal(t, "2", e.Attrs["load.depth"])
	assert.Equal(t, "5ms", e.Attrs["load.took"])
	assert.Equal(t, "boom", e.Attrs["load.err"])
	assert.Equal(t, "namespace", e.Attrs["load.entry.kind"])
	assert.Equal(t, "3", e.Attrs["load.entry.pos.line"])
	assert.NotContains(t, e.Attrs, "load.load.entry.kind")
	assert.Len(t, e.Attrs, 7)

	assert.Empty(t, rec.Find("missing"))
}

func TestRecorder_Enabled(t *testing.T) {
	rec := NewRecorder(slog.LevelInfo)
	logger := slog.New(rec)

	logger.Debug("dropped")
	logger.Info("kept")

	require.Len(t, rec.Entries(), 1)
	assert.Equal(t, "kept", rec.Entries()[0].Message)
}
