package output

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ppiankov/feedstream/internal/stream"
)

const snippetLen = 160

// TerminalFormatter prints one block per result.
type TerminalFormatter struct {
	color  bool
	redact []*regexp.Regexp
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool, redact []*regexp.Regexp) *TerminalFormatter {
	return &TerminalFormatter{color: color, redact: redact}
}

// Write prints r to w.
func (f *TerminalFormatter) Write(w io.Writer, r stream.Result) error {
	if r.Err != nil {
		return f.writeError(w, r.Err)
	}

	it := redactItem(r.Item, f.redact)
	title := it.Title
	if title == "" {
		title = "(untitled)"
	}

	meta := it.Source
	if it.Author != "" {
		meta += " · " + it.Author
	}
	if !it.PostedAt.IsZero() {
		meta += " · " + it.PostedAt.Local().Format("2006-01-02 15:04")
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", f.green(f.bold("+")), f.bold(title)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "    %s\n", f.dim(meta)); err != nil {
		return err
	}
	if text := snippet(it.Text); text != "" {
		if _, err := fmt.Fprintf(w, "    %s\n", text); err != nil {
			return err
		}
	}
	if it.URL != "" {
		if _, err := fmt.Fprintf(w, "    %s\n", f.dim(it.URL)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (f *TerminalFormatter) writeError(w io.Writer, err error) error {
	label := "error"
	var fe *stream.FetchError
	var se *stream.StorageError
	switch {
	case errors.As(err, &fe):
		label = "fetch failed"
	case errors.As(err, &se):
		label = "store failed"
	}

	_, werr := fmt.Fprintf(w, "%s %s\n\n", f.yellow(f.bold("! "+label)), f.dim(err.Error()))
	return werr
}

// snippet flattens text onto one line and truncates it to snippetLen runes.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen-1]) + "…"
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) green(s string) string {
	if !f.color {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func (f *TerminalFormatter) yellow(s string) string {
	if !f.color {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
