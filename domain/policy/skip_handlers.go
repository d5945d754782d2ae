package policy

import (
	"log/slog"
	"sync"

	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.SkipHandler = (*LogSkipHandler)(nil)
var _ ports.SkipHandler = (*NopSkipHandler)(nil)
var _ ports.SkipHandler = (*RecordingSkipHandler)(nil)

// LogSkipHandler logs skipped entries at debug level.
type LogSkipHandler struct {
	Logger *slog.Logger
}

func (h *LogSkipHandler) OnSkip(path string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("skipping script entry", "path", path, "reason", reason)
}

// NopSkipHandler does nothing.
type NopSkipHandler struct{}

func (h *NopSkipHandler) OnSkip(path string, reason string) {}

// RecordingSkipHandler collects skipped paths, in call order.
type RecordingSkipHandler struct {
	mu    sync.Mutex
	paths []string
}

func (h *RecordingSkipHandler) OnSkip(path string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
}

// Paths returns the recorded paths.
func (h *RecordingSkipHandler) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}
