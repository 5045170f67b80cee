package model

import (
	"io"
	"time"
)

// Status summarises how a board fetch ended.
type Status string

const (
	// StatusOK means the page was read to the end.
	StatusOK Status = "ok"

	// StatusFailed means the fetch or scan stopped with an error.
	StatusFailed Status = "failed"

	// StatusTimedOut means the fetch ran out of time.
	StatusTimedOut Status = "timed out"
)

// BoardReport is the result of fetching one board URL.
type BoardReport struct {
	// Source is the board URL.
	Source string `json:"source"`

	// StatusCode is the HTTP status of the response, zero if none arrived.
	StatusCode int `json:"status_code"`

	// ContentType is the response Content-Type.
	ContentType string `json:"content_type,omitempty"`

	// BytesRead is the total number of body bytes read.
	BytesRead int64 `json:"bytes_read"`

	// Fragments is the number of text fragments fed to the scanner.
	Fragments int `json:"fragments"`

	// Posts holds the extracted posts in page order.
	Posts []*Post `json:"posts"`

	// Skipped counts cycles dropped by the exclusion filter.
	Skipped int `json:"skipped"`

	// New counts posts not seen in an earlier fetch.
	New int `json:"new"`

	// StartedAt is when the fetch began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the fetch took.
	Duration time.Duration `json:"duration"`

	// TimedOut is true if the fetch was cut short by its deadline.
	TimedOut bool `json:"timed_out"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`

	// Stream is the open page body between the fetch and extract steps.
	Stream io.ReadCloser `json:"-"`

	// Error is the error that ended the fetch, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as text, for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewBoardReport returns an empty report for source stamped with the
// current time.
func NewBoardReport(source string) *BoardReport {
	return &BoardReport{
		Source:    source,
		Posts:     make([]*Post, 0),
		StartedAt: time.Now(),
	}
}

// AddPost appends a post and keeps the New count in step.
func (r *BoardReport) AddPost(p *Post) {
	r.Posts = append(r.Posts, p)
	if p.New {
		r.New++
	}
}

// MarkNew flags p as new and updates the count. It is a no-op for posts
// already flagged.
func (r *BoardReport) MarkNew(p *Post) {
	if p.New {
		return
	}
	p.New = true
	r.New++
}

// SetError records err on the report.
func (r *BoardReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Status returns how the fetch ended.
func (r *BoardReport) Status() Status {
	switch {
	case r.TimedOut:
		return StatusTimedOut
	case r.Error != nil || r.ErrorMessage != "":
		return StatusFailed
	default:
		return StatusOK
	}
}
