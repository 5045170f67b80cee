package report

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/boardwatch/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders board reports.
type Writer interface {
	// Write outputs one board report.
	Write(report *model.BoardReport) (int, error)

	// WriteAll outputs the reports of a batch. Nil entries, boards that
	// never started, are skipped.
	WriteAll(reports []*model.BoardReport) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// titleCase returns s in English title case. A Caser keeps state, so a
// new one is made per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// statusText returns the report status in title case, with the error
// message when the fetch failed.
func statusText(report *model.BoardReport) string {
	status := titleCase(string(report.Status()))
	if report.ErrorMessage != "" {
		return status + " - " + report.ErrorMessage
	}
	return status
}

// truncateString shortens s to at most maxLen runes, ending with "...".
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// nonNil drops nil reports.
func nonNil(reports []*model.BoardReport) []*model.BoardReport {
	out := make([]*model.BoardReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// singleLine folds line breaks for table cells and log-style lines.
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
