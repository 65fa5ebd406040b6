package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/feedstream/internal/source"
	"github.com/ppiankov/feedstream/internal/stream"
)

func sampleItem() source.Item {
	return source.Item{
		ID:       "abc",
		Source:   "r/golang",
		Kind:     "reddit",
		Title:    "Go 1.26 released, token ghp_123 leaked",
		Text:     "Line one\n\nline   two",
		Author:   "gopher",
		URL:      "https://reddit.com/r/golang/comments/abc",
		PostedAt: time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC),
	}
}

func TestCompileRedact(t *testing.T) {
	patterns, err := CompileRedact([]string{`(?i)token`, `\bsecret\b`})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(patterns) != 2 {
		t.Errorf("got %d patterns, want 2", len(patterns))
	}

	if _, err := CompileRedact([]string{`[invalid`}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestCompileRedactRejectsEmpty(t *testing.T) {
	_, err := CompileRedact([]string{`ghp_\w+`, ""})
	if !errors.Is(err, errEmptyPattern) {
		t.Fatalf("err = %v, want errEmptyPattern", err)
	}
}

func TestRedactItemKeepsIdentity(t *testing.T) {
	patterns, _ := CompileRedact([]string{`abc`})
	it := sampleItem()
	it.Text = "see abc"

	got := redactItem(it, patterns)
	if got.ID != "abc" || got.URL != it.URL {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.Text != "see [REDACTED]" {
		t.Errorf("text = %q", got.Text)
	}
	if it.Text != "see abc" {
		t.Error("original item was modified")
	}
}

func TestRedact_MultiplePatterns(t *testing.T) {
	patterns, _ := CompileRedact([]string{`ghp_\w+`, `(?i)secret`})
	got := redact("ghp_abc and Secret", patterns)
	want := "[REDACTED] and [REDACTED]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTerminal_Item(t *testing.T) {
	patterns, _ := CompileRedact([]string{`ghp_\w+`})
	f := NewTerminal(false, patterns)
	var buf bytes.Buffer

	if err := f.Write(&buf, stream.Result{Item: sampleItem()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Go 1.26 released, token [REDACTED] leaked") {
		t.Errorf("missing redacted title:\n%s", out)
	}
	if strings.Contains(out, "ghp_123") {
		t.Error("secret not redacted")
	}
	if !strings.Contains(out, "r/golang · gopher") {
		t.Errorf("missing meta line:\n%s", out)
	}
	if !strings.Contains(out, "Line one line two") {
		t.Errorf("text not flattened:\n%s", out)
	}
	if !strings.Contains(out, "https://reddit.com/r/golang/comments/abc") {
		t.Error("missing url")
	}
	if strings.Contains(out, "\033[") {
		t.Error("unexpected ANSI codes with color disabled")
	}
}

func TestTerminal_Color(t *testing.T) {
	f := NewTerminal(true, nil)
	var buf bytes.Buffer
	if err := f.Write(&buf, stream.Result{Item: sampleItem()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[1m") {
		t.Error("expected bold ANSI code")
	}
}

func TestTerminal_Errors(t *testing.T) {
	f := NewTerminal(false, nil)

	var buf bytes.Buffer
	fetchErr := &stream.FetchError{Source: "hn/top", Err: errors.New("timeout")}
	if err := f.Write(&buf, stream.Result{Err: fetchErr}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "! fetch failed") || !strings.Contains(buf.String(), "hn/top") {
		t.Errorf("unexpected fetch error output: %q", buf.String())
	}

	buf.Reset()
	storeErr := &stream.StorageError{Source: "hn/top", ItemID: "42", Err: errors.New("locked")}
	if err := f.Write(&buf, stream.Result{Err: storeErr}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "! store failed") || !strings.Contains(buf.String(), "42") {
		t.Errorf("unexpected storage error output: %q", buf.String())
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("a", snippetLen+20)
	got := snippet(long)
	if len([]rune(got)) != snippetLen {
		t.Fatalf("expected %d runes, got %d", snippetLen, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected ellipsis")
	}
}

func TestJSONLines_Item(t *testing.T) {
	patterns, _ := CompileRedact([]string{`ghp_\w+`})
	f := NewJSONLines(patterns)
	var buf bytes.Buffer

	if err := f.Write(&buf, stream.Result{Item: sampleItem()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected a single line, got %q", buf.String())
	}

	var line jsonLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if line.Type != "item" || line.ID != "abc" || line.Source != "r/golang" {
		t.Errorf("unexpected line: %+v", line)
	}
	if strings.Contains(line.Title, "ghp_") {
		t.Error("title not redacted")
	}
	if line.PostedAt != "2026-02-16T10:00:00Z" {
		t.Errorf("posted_at = %q", line.PostedAt)
	}
}

func TestJSONLines_Errors(t *testing.T) {
	f := NewJSONLines(nil)
	var buf bytes.Buffer

	storeErr := &stream.StorageError{Source: "r/golang", ItemID: "x1", Err: errors.New("disk full")}
	if err := f.Write(&buf, stream.Result{Err: storeErr}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var line jsonLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if line.Type != "storage_error" || line.ID != "x1" || line.Source != "r/golang" {
		t.Errorf("unexpected line: %+v", line)
	}
	if !strings.Contains(line.Error, "disk full") {
		t.Errorf("error = %q", line.Error)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("terminal", false, nil); err != nil {
		t.Fatalf("terminal: %v", err)
	}
	if _, err := New("json", false, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	if _, err := New("markdown", false, nil); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if _, err := New("xml", false, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestMarkdown(t *testing.T) {
	patterns, _ := CompileRedact([]string{`ghp_\w+`})
	f := NewMarkdown(patterns)
	var buf bytes.Buffer

	if err := f.Write(&buf, stream.Result{Item: sampleItem()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "- [Go 1.26 released, token \\[REDACTED\\] leaked](https://reddit.com/r/golang/comments/abc) (r/golang, gopher)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := f.Write(&buf, stream.Result{Err: &stream.FetchError{Source: "hn/new", Err: errors.New("timeout")}}); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "- **error:** fetch hn/new") {
		t.Errorf("unexpected error line %q", buf.String())
	}
}
