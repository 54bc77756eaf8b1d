package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})
	logger.Info("ingest complete", "documents", 3)

	output := buf.String()
	if !strings.Contains(output, "ingest complete") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "documents=3") {
		t.Errorf("expected output to contain attribute, got: %s", output)
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})
	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("expected below-level messages to be dropped, got: %s", output)
	}
	if !strings.Contains(output, "visible") {
		t.Errorf("expected warn message in output, got: %s", output)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{JSON: true})
	logger.Info("json test", "agent", "document_rag")

	output := buf.String()
	if !strings.Contains(output, `"msg":"json test"`) {
		t.Errorf("expected JSON output with msg field, got: %s", output)
	}
	if !strings.Contains(output, `"agent":"document_rag"`) {
		t.Errorf("expected JSON output with attribute, got: %s", output)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Must not panic.
	logger.Info("discarded")
	logger.Error("discarded too")
}
