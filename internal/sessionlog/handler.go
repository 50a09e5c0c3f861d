// Package sessionlog tees warning-and-above log records into an in-memory
// diagnostics sink while every record still reaches the base handler. Once
// the window manager owns the display there is no terminal to scroll back
// through, so recent warnings have to be retrievable after the fact.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// EntryCallback receives each record at or above the capture threshold.
// group is the accumulated dot-separated slog group path, or "".
type EntryCallback func(ts time.Time, level slog.Level, msg string, group string)

// TeeHandler wraps a base slog.Handler and additionally invokes a callback
// for records at or above minLevel. The base handler sees every record; only
// the tee is gated.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
}

// NewTeeHandler builds a TeeHandler over base. A nil callback disables the
// tee and the handler degrades to plain delegation.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{base: base, callback: callback, minLevel: minLevel}
}

// Enabled delegates to the base handler; minLevel gates only the tee, never
// record visibility.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards to the base handler and then tees qualifying records. The
// tee fires even when the base handler errored, and the base error is what
// gets returned either way.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.callback == nil || record.Level < h.minLevel {
		return err
	}
	h.tee(record)
	return err
}

// tee invokes the callback behind a recover. A panicking diagnostics sink
// must not take logging down with it; the panic goes straight to stderr
// since routing it through slog would re-enter this handler.
func (h *TeeHandler) tee(record slog.Record) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "sessionlog: callback panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.callback(record.Time, record.Level, record.Message, h.group)
}

func (h *TeeHandler) clone() *TeeHandler {
	c := *h
	return &c
}

// WithAttrs applies attrs to the base handler; the tee configuration and
// accumulated group carry over.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	c.base = h.base.WithAttrs(attrs)
	return c
}

// WithGroup wraps the base handler in the group and appends name to the
// accumulated group path the callback observes. An empty name returns the
// receiver unchanged, per the slog.Handler contract.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.base = h.base.WithGroup(name)
	if c.group != "" {
		c.group += "."
	}
	c.group += name
	return c
}
