package output

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ppiankov/feedstream/internal/source"
)

const redactedPlaceholder = "[REDACTED]"

var errEmptyPattern = errors.New("empty redact pattern")

// CompileRedact turns the output.redact config list into patterns for New.
// An empty pattern is rejected: it would match between every character.
func CompileRedact(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("redact pattern %d: %w", i+1, errEmptyPattern)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// redactItem masks the free-text fields of an item before it is rendered.
// Identity fields (ID, Source, URL) are left intact.
func redactItem(it source.Item, patterns []*regexp.Regexp) source.Item {
	if len(patterns) == 0 {
		return it
	}
	it.Title = redact(it.Title, patterns)
	it.Text = redact(it.Text, patterns)
	return it
}

func redact(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
