package output

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ppiankov/feedstream/internal/stream"
)

// MarkdownFormatter writes one list entry per result, suitable for appending
// to a notes file.
type MarkdownFormatter struct {
	redact []*regexp.Regexp
}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown(redact []*regexp.Regexp) *MarkdownFormatter {
	return &MarkdownFormatter{redact: redact}
}

// Write appends r to w as a Markdown list item.
func (f *MarkdownFormatter) Write(w io.Writer, r stream.Result) error {
	if r.Err != nil {
		_, err := fmt.Fprintf(w, "- **error:** %s\n", escapeMarkdown(r.Err.Error()))
		return err
	}

	it := redactItem(r.Item, f.redact)
	title := escapeMarkdown(it.Title)
	if title == "" {
		title = "(untitled)"
	}
	if it.URL != "" {
		title = fmt.Sprintf("[%s](%s)", title, it.URL)
	}

	line := fmt.Sprintf("- %s (%s", title, it.Source)
	if it.Author != "" {
		line += ", " + it.Author
	}
	line += ")"
	_, err := fmt.Fprintln(w, line)
	return err
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`*`, `\*`,
	`_`, `\_`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
