// Package stream splits a byte stream into text fragments.
//
// A Fragmenter reads through a small fixed buffer and hands each chunk to
// the caller as a string. Chunks never end inside a UTF-8 sequence: the incomplete
// tail of one read is carried into the next, so every fragment is valid
// text in its own right.
package stream
