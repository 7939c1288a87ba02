package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestWriteDebugLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDebugLine(&buf, "https://example.com/p", "Example Page", "hello world"); err != nil {
		t.Fatalf("WriteDebugLine: %v", err)
	}

	var line DebugLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal debug line: %v", err)
	}
	if line.URL != "https://example.com/p" {
		t.Errorf("URL = %q, want https://example.com/p", line.URL)
	}
	if line.Title != "Example Page" {
		t.Errorf("Title = %q, want %q", line.Title, "Example Page")
	}
	if line.Text != "hello world" {
		t.Errorf("Text = %q, want %q", line.Text, "hello world")
	}
	if line.Timestamp == 0 {
		t.Error("expected non-zero Timestamp")
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summary{Checked: 42, Archived: 10, Duration: 3 * time.Second}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "42") || !strings.Contains(out, "10") {
		t.Errorf("expected counts in summary output, got: %s", out)
	}
}
