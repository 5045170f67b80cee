// Package report renders board fetch results.
//
// Writers for three formats are provided:
//   - SimpleWriter: the "Header:" / "Body:" lines of the original board
//     client, optionally streamed post by post
//   - JSONWriter: structured output for other tools
//   - MarkdownWriter: GitHub Flavored Markdown with summary tables
//
// All writers implement Writer.
package report
