// Package pipeline runs the per-board fetch, extract and store steps.
//
// Each board URL gets its own BoardReport, which is handed through an
// ordered list of Steps:
//
//	FetchStep   opens the page and leaves the body stream on the report
//	ExtractStep splits the stream into fragments, drives the marker scanner
//	            and decodes every (header, body) pair into a Post
//	StoreStep   records posts in the history database and flags new ones
//
// A step that fails stops the pipeline unless WithContinueOnError is set.
// BatchProcessor runs one pipeline per board concurrently with a limit,
// using errgroup.
package pipeline
