package testutils

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// MockHandler records the handled log records and implements slog.Handler.
type MockHandler struct {
	IgnoreBelow slog.Level
	HandleCalls []slog.Record

	mu sync.Mutex
}

// HasMessage reports whether a record containing msg was handled.
func (h *MockHandler) HasMessage(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.HandleCalls {
		if strings.Contains(r.Message, msg) {
			return true
		}
	}
	return false
}

// Enabled implements Handler.Enabled.
func (h *MockHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level > h.IgnoreBelow
}

// Handle implements Handler.Handle.
func (h *MockHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.HandleCalls = append(h.HandleCalls, record)
	return nil
}

// WithAttrs implements Handler.WithAttrs. Attributes are not recorded.
func (h *MockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements Handler.WithGroup. Groups are not recorded.
func (h *MockHandler) WithGroup(name string) slog.Handler {
	return h
}

// DiscardLogger returns a logger dropping every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewMockLogger returns a logger recording every record at or above level in the returned handler.
func NewMockLogger(level slog.Level) (*slog.Logger, *MockHandler) {
	h := &MockHandler{IgnoreBelow: level - 1}
	return slog.New(h), h
}
