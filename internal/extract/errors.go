package extract

import "errors"

var (
	// ErrEmptyMarker is returned when a marker needle is empty.
	ErrEmptyMarker = errors.New("marker must not be empty")

	// ErrSelfOverlapping is returned when a marker needle has a proper prefix
	// that is also a suffix. The restart-on-mismatch matcher cannot find such
	// needles reliably.
	ErrSelfOverlapping = errors.New("marker has a self-overlapping prefix")

	// ErrInvalidUTF8 is returned by Unescape when the decoded text is not
	// valid UTF-8. Decoding only substitutes ASCII bytes and complete code
	// points, so this indicates a broken invariant rather than bad input.
	ErrInvalidUTF8 = errors.New("unescape produced invalid UTF-8")
)
