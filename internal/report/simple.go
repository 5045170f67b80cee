package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nao1215/boardwatch/internal/model"
)

// SimpleWriter prints posts as "Header: ..." and "Body: ..." lines followed
// by a "Total: N bytes" line per board. It is safe for concurrent use;
// each post and each footer is written in one call.
type SimpleWriter struct {
	baseWriter

	mu sync.Mutex

	// showSource prefixes every board with a "Source:" line.
	showSource bool

	// verbose adds the post ID and the board counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowSource prints the board URL before its posts.
func WithShowSource(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSource = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WritePost prints one post. It is meant for streaming posts while the
// page is still being read.
func (w *SimpleWriter) WritePost(p *model.Post) (int, error) {
	var sb strings.Builder
	w.writePost(&sb, p)
	return w.flush(&sb)
}

// WriteFooter prints the byte total of a finished board.
func (w *SimpleWriter) WriteFooter(report *model.BoardReport) (int, error) {
	var sb strings.Builder
	w.writeFooter(&sb, report)
	return w.flush(&sb)
}

// Write prints all posts of report and its footer.
func (w *SimpleWriter) Write(report *model.BoardReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	return w.flush(&sb)
}

// WriteAll prints every report, separated by a blank line.
func (w *SimpleWriter) WriteAll(reports []*model.BoardReport) (int, error) {
	var sb strings.Builder
	for i, r := range nonNil(reports) {
		if i > 0 {
			sb.WriteString("\n")
		}
		w.writeReport(&sb, r)
	}
	return w.flush(&sb)
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.BoardReport) {
	if w.showSource {
		fmt.Fprintf(sb, "Source: %s\n", report.Source)
	}
	for _, p := range report.Posts {
		w.writePost(sb, p)
	}
	w.writeFooter(sb, report)
}

func (w *SimpleWriter) writePost(sb *strings.Builder, p *model.Post) {
	fmt.Fprintf(sb, "Header: %s\n", p.Header)
	fmt.Fprintf(sb, "Body: %s\n", p.Body)
	if w.verbose {
		marker := ""
		if p.New {
			marker = " (new)"
		}
		fmt.Fprintf(sb, "ID: %s%s\n", truncateString(p.ID, 12), marker)
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.BoardReport) {
	fmt.Fprintf(sb, "Total: %d bytes\n", report.BytesRead)
	if report.Status() != model.StatusOK {
		fmt.Fprintf(sb, "Status: %s\n", singleLine(statusText(report)))
	}
	if w.verbose {
		fmt.Fprintf(sb, "Posts: %d (new %d, skipped %d) in %s\n",
			len(report.Posts), report.New, report.Skipped, report.Duration)
	}
}

func (w *SimpleWriter) flush(sb *strings.Builder) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return io.WriteString(w.output, sb.String())
}
