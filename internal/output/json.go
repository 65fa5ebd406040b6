package output

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"time"

	"github.com/ppiankov/feedstream/internal/stream"
)

type jsonLine struct {
	Type     string `json:"type"`
	Source   string `json:"source,omitempty"`
	ID       string `json:"id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	Author   string `json:"author,omitempty"`
	URL      string `json:"url,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`
	Error    string `json:"error,omitempty"`
}

// JSONLinesFormatter writes one JSON object per line.
type JSONLinesFormatter struct {
	redact []*regexp.Regexp
}

// NewJSONLines creates a JSON lines formatter.
func NewJSONLines(redact []*regexp.Regexp) *JSONLinesFormatter {
	return &JSONLinesFormatter{redact: redact}
}

// Write encodes r as a single line.
func (f *JSONLinesFormatter) Write(w io.Writer, r stream.Result) error {
	return json.NewEncoder(w).Encode(f.toLine(r))
}

func (f *JSONLinesFormatter) toLine(r stream.Result) jsonLine {
	if r.Err != nil {
		line := jsonLine{Type: "error", Error: r.Err.Error()}
		var fe *stream.FetchError
		var se *stream.StorageError
		switch {
		case errors.As(r.Err, &fe):
			line.Type = "fetch_error"
			line.Source = fe.Source
		case errors.As(r.Err, &se):
			line.Type = "storage_error"
			line.Source = se.Source
			line.ID = se.ItemID
		}
		return line
	}

	it := redactItem(r.Item, f.redact)
	line := jsonLine{
		Type:   "item",
		Source: it.Source,
		ID:     it.ID,
		Kind:   it.Kind,
		Title:  it.Title,
		Text:   it.Text,
		Author: it.Author,
		URL:    it.URL,
	}
	if !it.PostedAt.IsZero() {
		line.PostedAt = it.PostedAt.UTC().Format(time.RFC3339)
	}
	return line
}
