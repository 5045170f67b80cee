package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Post is one board entry after entity decoding.
type Post struct {
	// ID identifies the post across fetches. See ComputeID.
	ID string `json:"id"`

	// Source is the board URL the post was read from.
	Source string `json:"source"`

	// Index is the 1-based position of the post on the page.
	Index int `json:"index"`

	// Header is the decoded text between the header markers, usually the
	// posting date.
	Header string `json:"header"`

	// Body is the decoded post text.
	Body string `json:"body"`

	// FetchedAt is when the page holding the post was read.
	FetchedAt time.Time `json:"fetched_at"`

	// New is true when the post was not in the history database before
	// this fetch.
	New bool `json:"new"`
}

// NewPost returns a post with its ID computed.
func NewPost(source string, index int, header, body string, fetchedAt time.Time) *Post {
	p := &Post{
		Source:    source,
		Index:     index,
		Header:    header,
		Body:      body,
		FetchedAt: fetchedAt,
	}
	p.ComputeID()
	return p
}

// ComputeID sets ID to the hex SHA3-256 of source, header and body.
// The position on the page is not part of the identity, so a post keeps
// its ID when newer posts push it down the board.
func (p *Post) ComputeID() {
	h := sha3.New256()
	for _, field := range []string{p.Source, p.Header, p.Body} {
		h.Write([]byte(field))
		// NUL separates fields so that ("ab", "c") and ("a", "bc") differ.
		h.Write([]byte{0})
	}
	p.ID = hex.EncodeToString(h.Sum(nil))
}
