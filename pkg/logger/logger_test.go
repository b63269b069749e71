package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("fatal")
	if got := LevelString(); got != "fatal" {
		t.Fatalf("LevelString() = %q, want %q", got, "fatal")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf)
	defer setOutput(os.Stdout)
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg") {
		t.Fatalf("error message missing: %q", out)
	}

	Init("info")
	buf.Reset()
	Infof("hello %d", 7)
	if !strings.Contains(buf.String(), "hello 7") {
		t.Fatalf("Infof expected at info level, got: %q", buf.String())
	}
}

func TestJSONFormatWithFields(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		setOutput(os.Stdout)
	}()

	With("document_id", "comp_1").Info("saved")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "saved" || entry["document_id"] != "comp_1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
