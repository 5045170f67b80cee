// Package main provides the boardwatch CLI.
//
// boardwatch reads a message board page as a stream, extracts every
// header/body post between the page markers, decodes the HTML entities
// and records the posts in a local history database.
//
// Usage:
//
//	boardwatch fetch <url>
//	boardwatch history [url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
