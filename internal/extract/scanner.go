package extract

import (
	"bytes"
	"fmt"
)

// DefaultExclusion marks archive posts that are never emitted.
const DefaultExclusion = "#update-board-archive"

// Stage is the scanner's position in the marker sequence.
type Stage int

const (
	// StageFindPreamble discards input until the preamble marker.
	StageFindPreamble Stage = iota

	// StageFindHeaderStart discards input until the header-start marker.
	StageFindHeaderStart

	// StageFindHeaderEnd copies input into the header until the header-end marker.
	StageFindHeaderEnd

	// StageFindBodyStart discards input until the body-start marker.
	StageFindBodyStart

	// StageFindBodyEnd copies input into the body until the body-end marker.
	StageFindBodyEnd

	// StageResultAvailable holds a completed cycle until the driving loop
	// takes it. The next Step moves to StageFindHeaderStart.
	StageResultAvailable
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageFindPreamble:
		return "find preamble"
	case StageFindHeaderStart:
		return "find header start"
	case StageFindHeaderEnd:
		return "find header end"
	case StageFindBodyStart:
		return "find body start"
	case StageFindBodyEnd:
		return "find body end"
	case StageResultAvailable:
		return "result available"
	default:
		return "unknown"
	}
}

// Cycle is one extracted (header, body) pair, still HTML-escaped.
type Cycle struct {
	Header string
	Body   string
}

// Scanner is the marker state machine for one stream.
// It is not safe for concurrent use; each stream owns its own Scanner.
type Scanner struct {
	markers    MarkerSet
	exclusions [][]byte

	stage Stage

	// matched is the partial match offset into the marker of the current
	// stage. It is zero whenever the stage changes.
	matched int

	header []byte
	body   []byte

	cycles  int
	skipped int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMarkers replaces the default marker set.
func WithMarkers(markers MarkerSet) Option {
	return func(s *Scanner) {
		s.markers = markers
	}
}

// WithExclusions replaces the exclusion tokens. A completed cycle whose raw
// header contains any token is dropped. Calling it with no tokens disables
// the filter.
func WithExclusions(tokens ...string) Option {
	return func(s *Scanner) {
		s.exclusions = s.exclusions[:0]
		for _, t := range tokens {
			if t != "" {
				s.exclusions = append(s.exclusions, []byte(t))
			}
		}
	}
}

// NewScanner returns a Scanner positioned before the preamble.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		markers:    DefaultMarkers(),
		exclusions: [][]byte{[]byte(DefaultExclusion)},
		stage:      StageFindPreamble,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage returns the current stage.
func (s *Scanner) Stage() Stage {
	return s.stage
}

// Cycles returns the number of cycles emitted so far.
func (s *Scanner) Cycles() int {
	return s.cycles
}

// Skipped returns the number of cycles dropped by the exclusion filter.
func (s *Scanner) Skipped() int {
	return s.skipped
}

// Reset returns the scanner to StageFindPreamble with empty accumulators,
// keeping its markers and exclusions.
func (s *Scanner) Reset() {
	s.stage = StageFindPreamble
	s.matched = 0
	s.header = s.header[:0]
	s.body = s.body[:0]
	s.cycles = 0
	s.skipped = 0
}

// Step performs one state transition on fragment and returns the unconsumed
// remainder. more is false when the whole fragment was consumed without
// completing the current marker; the scanner then waits for the next
// fragment. The remainder may be empty while more is true.
func (s *Scanner) Step(fragment string) (rest string, more bool) {
	switch s.stage {
	case StageFindPreamble:
		return s.discardUntil(s.markers.Preamble, fragment, StageFindHeaderStart)
	case StageFindHeaderStart:
		return s.discardUntil(s.markers.HeaderStart, fragment, StageFindHeaderEnd)
	case StageFindHeaderEnd:
		return s.copyUntil(s.markers.HeaderEnd, fragment, &s.header, StageFindBodyStart)
	case StageFindBodyStart:
		return s.discardUntil(s.markers.BodyStart, fragment, StageFindBodyEnd)
	case StageFindBodyEnd:
		return s.copyUntil(s.markers.BodyEnd, fragment, &s.body, StageResultAvailable)
	default:
		s.stage = StageFindHeaderStart
		return fragment, true
	}
}

// Feed drains fragment, calling emit once for every completed cycle that
// passes the exclusion filter. State that is not resolved by the end of the
// fragment carries over to the next call. An error from emit stops the scan
// and is returned wrapped.
func (s *Scanner) Feed(fragment string, emit func(Cycle) error) error {
	rest, more := fragment, true
	for more {
		rest, more = s.Step(rest)
		if s.stage != StageResultAvailable {
			continue
		}

		cycle, excluded := s.take()
		if excluded {
			s.skipped++
			continue
		}
		s.cycles++
		if err := emit(cycle); err != nil {
			return fmt.Errorf("cycle %d: %w", s.cycles, err)
		}
	}
	return nil
}

// take returns the completed cycle and clears both accumulators.
func (s *Scanner) take() (Cycle, bool) {
	defer func() {
		s.header = s.header[:0]
		s.body = s.body[:0]
	}()

	for _, token := range s.exclusions {
		if bytes.Contains(s.header, token) {
			return Cycle{}, true
		}
	}
	return Cycle{Header: string(s.header), Body: string(s.body)}, false
}

// discardUntil drops input up to and including m.
func (s *Scanner) discardUntil(m Marker, chunk string, next Stage) (string, bool) {
	end, found := m.find(chunk, &s.matched)
	if !found {
		return "", false
	}
	s.stage = next
	return chunk[end:], true
}

// copyUntil appends input up to m into acc, dropping m itself.
func (s *Scanner) copyUntil(m Marker, chunk string, acc *[]byte, next Stage) (string, bool) {
	end, found := m.find(chunk, &s.matched)
	if !found {
		*acc = append(*acc, chunk...)
		return "", false
	}

	if keep := end - m.Len(); keep >= 0 {
		*acc = append(*acc, chunk[:keep]...)
	} else {
		// The marker began in an earlier fragment, whose bytes were already
		// appended as ordinary text. -keep of them are still in acc.
		*acc = (*acc)[:len(*acc)+keep]
	}
	s.stage = next
	return chunk[end:], true
}
