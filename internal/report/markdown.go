package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/boardwatch/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

const markdownTimeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs reports in GitHub Flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one board report.
func (w *MarkdownWriter) Write(report *model.BoardReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Board Report")
	md.PlainText("")
	w.writeOverview(md, report)
	w.writeAlert(md, report)
	w.writePosts(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAll outputs a summary of every board followed by their posts.
func (w *MarkdownWriter) WriteAll(reports []*model.BoardReport) (int, error) {
	reports = nonNil(reports)
	md := markdown.NewMarkdown(w.output)

	md.H1("Boardwatch Report")
	md.PlainText("")
	w.writeSummary(md, reports)

	for _, r := range reports {
		md.H2(r.Source)
		md.PlainText("")
		w.writeOverview(md, r)
		w.writeAlert(md, r)
		w.writePosts(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, report *model.BoardReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + report.Source + "`"},
			{"Fetched", report.StartedAt.Format(markdownTimeLayout)},
			{"Status", escapeCell(statusText(report))},
			{"HTTP Status", strconv.Itoa(report.StatusCode)},
			{"Bytes Read", strconv.FormatInt(report.BytesRead, 10)},
			{"Posts", strconv.Itoa(len(report.Posts))},
			{"New", strconv.Itoa(report.New)},
			{"Skipped", strconv.Itoa(report.Skipped)},
			{"Duration", report.Duration.String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, reports []*model.BoardReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			"`" + r.Source + "`",
			escapeCell(titleCase(string(r.Status()))),
			strconv.Itoa(len(r.Posts)),
			strconv.Itoa(r.New),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Status", "Posts", "New"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, reports)
}

// writePieChart writes a mermaid pie chart of posts per board. Boards
// without posts are left out; nothing is written when no board has any.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, reports []*model.BoardReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Posts per Board"),
		piechart.WithShowData(true),
	)

	labelled := 0
	for _, r := range reports {
		if len(r.Posts) == 0 {
			continue
		}
		chart.LabelAndIntValue(r.Source, uint64(len(r.Posts)))
		labelled++
	}
	if labelled == 0 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.BoardReport) {
	switch report.Status() {
	case model.StatusTimedOut:
		md.Warningf("Fetch timed out after %s; %d post(s) were read before the deadline.",
			report.Duration, len(report.Posts))
	case model.StatusFailed:
		md.Cautionf("Fetch failed: %s", singleLine(report.ErrorMessage))
	default:
		switch {
		case len(report.Posts) == 0:
			md.Note("No posts found on this board.")
		case report.New > 0:
			md.Importantf("%d new post(s) since the last fetch.", report.New)
		default:
			md.Tip("No new posts since the last fetch.")
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePosts(md *markdown.Markdown, report *model.BoardReport) {
	if len(report.Posts) == 0 {
		return
	}

	rows := make([][]string, len(report.Posts))
	for i, p := range report.Posts {
		status := ""
		if p.New {
			status = "🆕"
		}
		rows[i] = []string{
			strconv.Itoa(p.Index),
			escapeCell(truncateString(p.Header, 40)),
			escapeCell(truncateString(p.Body, 120)),
			status,
		}
	}

	md.PlainText("### Posts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"#", "Header", "Body", "New"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [boardwatch](https://github.com/nao1215/boardwatch)*")
}

// escapeCell keeps text inside one table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>").Replace(s)
}
