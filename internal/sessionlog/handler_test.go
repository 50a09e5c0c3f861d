package sessionlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type captured struct {
	level slog.Level
	msg   string
	group string
}

func newCapture() (EntryCallback, *[]captured) {
	var got []captured
	cb := func(ts time.Time, level slog.Level, msg, group string) {
		got = append(got, captured{level: level, msg: msg, group: group})
	}
	return cb, &got
}

func TestTeeThreshold(t *testing.T) {
	tests := []struct {
		name     string
		minLevel slog.Level
		logAt    slog.Level
		wantTee  bool
	}{
		{"warn reaches warn threshold", slog.LevelWarn, slog.LevelWarn, true},
		{"error reaches warn threshold", slog.LevelWarn, slog.LevelError, true},
		{"info below warn threshold", slog.LevelWarn, slog.LevelInfo, false},
		{"debug below warn threshold", slog.LevelWarn, slog.LevelDebug, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			cb, got := newCapture()
			log := slog.New(NewTeeHandler(base, tt.minLevel, cb))

			log.Log(context.Background(), tt.logAt, "hello")

			if !strings.Contains(buf.String(), "hello") {
				t.Fatalf("base handler did not receive the record: %q", buf.String())
			}
			if teed := len(*got) == 1; teed != tt.wantTee {
				t.Fatalf("teed = %v, want %v", teed, tt.wantTee)
			}
			if tt.wantTee && (*got)[0].level != tt.logAt {
				t.Fatalf("teed level = %v, want %v", (*got)[0].level, tt.logAt)
			}
		})
	}
}

func TestNilCallbackDelegatesOnly(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := slog.New(NewTeeHandler(base, slog.LevelWarn, nil))

	log.Warn("quiet")

	if !strings.Contains(buf.String(), "quiet") {
		t.Fatalf("base handler did not receive the record: %q", buf.String())
	}
}

func TestGroupAccumulation(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	cb, got := newCapture()
	log := slog.New(NewTeeHandler(base, slog.LevelWarn, cb))

	log.WithGroup("wm").WithGroup("focus").Warn("lost focus target")

	if len(*got) != 1 {
		t.Fatalf("tee count = %d, want 1", len(*got))
	}
	if (*got)[0].group != "wm.focus" {
		t.Fatalf("group = %q, want %q", (*got)[0].group, "wm.focus")
	}
}

func TestWithGroupEmptyNameReturnsReceiver(t *testing.T) {
	h := NewTeeHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelWarn, nil)
	if h.WithGroup("") != slog.Handler(h) {
		t.Fatal("WithGroup(\"\") must return the receiver unchanged")
	}
}

func TestWithAttrsPreservesTee(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	cb, got := newCapture()
	log := slog.New(NewTeeHandler(base, slog.LevelWarn, cb))

	log.With("client", "0x4000a").Warn("adoption aborted")

	if !strings.Contains(buf.String(), "client=0x4000a") {
		t.Fatalf("base handler lost the attr: %q", buf.String())
	}
	if len(*got) != 1 || (*got)[0].msg != "adoption aborted" {
		t.Fatalf("tee = %+v, want one 'adoption aborted' entry", *got)
	}
}

func TestCallbackPanicDoesNotPropagate(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	h := NewTeeHandler(base, slog.LevelWarn, func(time.Time, slog.Level, string, string) {
		panic("sink exploded")
	})
	log := slog.New(h)

	// Must not panic, and the base handler still sees the record.
	log.Warn("survives")

	if !strings.Contains(buf.String(), "survives") {
		t.Fatalf("base handler did not receive the record: %q", buf.String())
	}
}

type erroringHandler struct{ err error }

func (e erroringHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (e erroringHandler) Handle(context.Context, slog.Record) error { return e.err }
func (e erroringHandler) WithAttrs([]slog.Attr) slog.Handler        { return e }
func (e erroringHandler) WithGroup(string) slog.Handler             { return e }

func TestBaseErrorReturnedAndTeeStillFires(t *testing.T) {
	wantErr := errors.New("disk full")
	cb, got := newCapture()
	h := NewTeeHandler(erroringHandler{err: wantErr}, slog.LevelWarn, cb)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "base failed", 0)
	if err := h.Handle(context.Background(), rec); !errors.Is(err, wantErr) {
		t.Fatalf("Handle error = %v, want %v", err, wantErr)
	}
	if len(*got) != 1 {
		t.Fatalf("tee count = %d, want 1 despite base error", len(*got))
	}
}

func TestEnabledDelegatesToBase(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewTeeHandler(base, slog.LevelWarn, nil)

	if h.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("Enabled(Warn) = true, want base handler's false")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("Enabled(Error) = false, want base handler's true")
	}
}
