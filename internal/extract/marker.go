package extract

import (
	"fmt"
	"strings"
)

// Role identifies which boundary of a post a Marker delimits.
type Role int

const (
	// RolePreamble anchors the scan to the start of the post list.
	// It is searched for once per stream.
	RolePreamble Role = iota

	// RoleHeaderStart precedes the header text.
	RoleHeaderStart

	// RoleHeaderEnd follows the header text.
	RoleHeaderEnd

	// RoleBodyStart precedes the body text.
	RoleBodyStart

	// RoleBodyEnd follows the body text and completes a cycle.
	RoleBodyEnd
)

// String returns the role name used in logs and errors.
func (r Role) String() string {
	switch r {
	case RolePreamble:
		return "preamble"
	case RoleHeaderStart:
		return "header-start"
	case RoleHeaderEnd:
		return "header-end"
	case RoleBodyStart:
		return "body-start"
	case RoleBodyEnd:
		return "body-end"
	default:
		return "unknown"
	}
}

// Marker is an immutable literal needle with a role.
type Marker struct {
	role   Role
	needle string
}

// NewMarker returns a Marker for needle.
// It fails with ErrEmptyMarker or ErrSelfOverlapping when the needle cannot be
// matched by the streaming matcher.
func NewMarker(role Role, needle string) (Marker, error) {
	if needle == "" {
		return Marker{}, fmt.Errorf("%s: %w", role, ErrEmptyMarker)
	}
	if hasBorder(needle) {
		return Marker{}, fmt.Errorf("%s %q: %w", role, needle, ErrSelfOverlapping)
	}
	return Marker{role: role, needle: needle}, nil
}

// Role returns the marker's role.
func (m Marker) Role() Role {
	return m.role
}

// String returns the needle.
func (m Marker) String() string {
	return m.needle
}

// Len returns the needle length in bytes.
func (m Marker) Len() int {
	return len(m.needle)
}

// find feeds chunk through the matcher, starting from the partial match
// offset in *matched. If the needle completes inside chunk, it returns the
// byte offset one past the match end and *matched is reset to zero.
// Otherwise *matched holds the length of the trailing partial match.
func (m Marker) find(chunk string, matched *int) (int, bool) {
	for i := 0; i < len(chunk); i++ {
		*matched = advance(m.needle, chunk[i], *matched)
		if *matched == len(m.needle) {
			*matched = 0
			return i + 1, true
		}
	}
	return 0, false
}

// advance returns the partial match length of needle after byte b, given
// that the previous matched bytes were a prefix of needle. On a mismatch it
// restarts at the first needle byte, which is the full KMP transition for
// border-free needles.
func advance(needle string, b byte, matched int) int {
	if b == needle[matched] {
		return matched + 1
	}
	if b == needle[0] {
		return 1
	}
	return 0
}

// hasBorder reports whether some prefix of needle has a proper border, i.e.
// whether the KMP failure function is non-zero anywhere. While the failure
// function is zero the automaton compares against needle[0], so the first
// non-zero entry appears exactly where needle[0] occurs again.
func hasBorder(needle string) bool {
	return strings.IndexByte(needle[1:], needle[0]) >= 0
}

// MarkerSet is the ordered set of five markers searched per cycle.
type MarkerSet struct {
	Preamble    Marker
	HeaderStart Marker
	HeaderEnd   Marker
	BodyStart   Marker
	BodyEnd     Marker
}

// Default needles.
const (
	DefaultPreamble    = "Scroll to the right to read!"
	DefaultHeaderStart = "<strong>"
	DefaultHeaderEnd   = "</strong>"
	DefaultBodyStart   = "<span>"
	DefaultBodyEnd     = "</span>"

	// LegacyBodyStart and LegacyBodyEnd match the live board layout, where
	// the body text follows a closing span and ends with the table cell.
	LegacyBodyStart = "</span>"
	LegacyBodyEnd   = "</td>"
)

// NewMarkerSet validates each needle and returns the set.
func NewMarkerSet(preamble, headerStart, headerEnd, bodyStart, bodyEnd string) (MarkerSet, error) {
	var (
		set MarkerSet
		err error
	)
	if set.Preamble, err = NewMarker(RolePreamble, preamble); err != nil {
		return MarkerSet{}, err
	}
	if set.HeaderStart, err = NewMarker(RoleHeaderStart, headerStart); err != nil {
		return MarkerSet{}, err
	}
	if set.HeaderEnd, err = NewMarker(RoleHeaderEnd, headerEnd); err != nil {
		return MarkerSet{}, err
	}
	if set.BodyStart, err = NewMarker(RoleBodyStart, bodyStart); err != nil {
		return MarkerSet{}, err
	}
	if set.BodyEnd, err = NewMarker(RoleBodyEnd, bodyEnd); err != nil {
		return MarkerSet{}, err
	}
	return set, nil
}

// DefaultMarkers returns the default marker set.
func DefaultMarkers() MarkerSet {
	return mustMarkerSet(DefaultPreamble, DefaultHeaderStart, DefaultHeaderEnd, DefaultBodyStart, DefaultBodyEnd)
}

// LegacyMarkers returns the marker set of the live board layout.
func LegacyMarkers() MarkerSet {
	return mustMarkerSet(DefaultPreamble, DefaultHeaderStart, DefaultHeaderEnd, LegacyBodyStart, LegacyBodyEnd)
}

func mustMarkerSet(preamble, headerStart, headerEnd, bodyStart, bodyEnd string) MarkerSet {
	set, err := NewMarkerSet(preamble, headerStart, headerEnd, bodyStart, bodyEnd)
	if err != nil {
		panic(err)
	}
	return set
}
