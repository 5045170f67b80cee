package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/boardwatch/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent       bool
	indentPrefix string
	indentString string

	// version is stamped on batch output.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version recorded by WriteAll.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one report as a JSON object.
func (w *JSONWriter) Write(report *model.BoardReport) (int, error) {
	return w.writeJSON(report)
}

// WriteAll outputs a Batch holding every report.
func (w *JSONWriter) WriteAll(reports []*model.BoardReport) (int, error) {
	return w.writeJSON(NewBatch(reports, w.version))
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// Batch is the JSON document for a multi-board run.
type Batch struct {
	// Version is the boardwatch version that produced the document.
	Version string `json:"version,omitempty"`

	// GeneratedAt is when the document was written.
	GeneratedAt time.Time `json:"generated_at"`

	// Total counts posts across all boards.
	Total int `json:"total_posts"`

	// New counts new posts across all boards.
	New int `json:"new_posts"`

	// Reports holds one entry per board in input order.
	Reports []*model.BoardReport `json:"reports"`
}

// NewBatch wraps reports, skipping nil entries.
func NewBatch(reports []*model.BoardReport, version string) *Batch {
	b := &Batch{
		Version:     version,
		GeneratedAt: time.Now(),
		Reports:     nonNil(reports),
	}
	for _, r := range b.Reports {
		b.Total += len(r.Posts)
		b.New += r.New
	}
	return b
}
