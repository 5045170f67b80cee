// Package model defines the data structures shared by the fetch pipeline,
// the history database and the report writers.
//
// This package contains the following main types:
//   - Post: one decoded (header, body) pair taken from a board page
//   - BoardReport: the result of fetching and scanning one board URL
//
// Models live in their own package so that pipeline, database and report
// can share them without import cycles. All of them serialize to JSON.
package model
