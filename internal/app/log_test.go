package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWamHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "backup created",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tbackup created\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "probing candidate",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tprobing candidate\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "snapshot created",
			attrs:   []slog.Attr{slog.String("account", "id-1"), slog.Int("files", 4)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tsnapshot created\taccount=id-1\tfiles=4\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &wamHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestWamHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &wamHandler{w: &buf, opID: "op-1"}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*wamHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "bundle uploaded", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestWamHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &wamHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*wamHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestWamHandler_Enabled(t *testing.T) {
	tests := []struct {
		min   slog.Level
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, slog.LevelDebug, true},
		{slog.LevelDebug, slog.LevelError, true},
		{slog.LevelWarn, slog.LevelInfo, false},
		{slog.LevelWarn, slog.LevelWarn, true},
		{slog.LevelError, slog.LevelWarn, false},
	}
	for _, tt := range tests {
		h := &wamHandler{min: tt.min}
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("min %v: Enabled(%v) = %v, want %v", tt.min, tt.level, got, tt.want)
		}
	}
}

func TestFanoutHandler(t *testing.T) {
	var file, term bytes.Buffer
	logger := slog.New(fanoutHandler{
		&wamHandler{w: &file, min: slog.LevelDebug, opID: "op-1"},
		&wamHandler{w: &term, min: slog.LevelWarn, opID: "op-1"},
	}).With("component", "scheduler")

	logger.Debug("tick")
	logger.Warn("backup failed", "account", "id-1")

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("file got %d lines, want 2: %q", got, file.String())
	}
	if strings.Contains(term.String(), "tick") {
		t.Errorf("stderr got a debug record: %q", term.String())
	}
	if !strings.Contains(term.String(), "backup failed\tcomponent=scheduler\taccount=id-1") {
		t.Errorf("stderr = %q", term.String())
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-op", slog.LevelError)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	logger.Debug("hello")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\tDEBUG\ttest-op\thello") {
		t.Errorf("log file = %q", data)
	}
}
