// Package output renders stream results for the terminal, as JSON lines or as Markdown.
package output

import (
	"fmt"
	"io"
	"regexp"

	"github.com/ppiankov/feedstream/internal/stream"
)

// Formatter renders one result at a time.
type Formatter interface {
	Write(w io.Writer, r stream.Result) error
}

// New returns the formatter for format ("terminal", "json" or "markdown").
func New(format string, color bool, redact []*regexp.Regexp) (Formatter, error) {
	switch format {
	case "", "terminal":
		return NewTerminal(color, redact), nil
	case "json":
		return NewJSONLines(redact), nil
	case "markdown":
		return NewMarkdown(redact), nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", format)
	}
}
