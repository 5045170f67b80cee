// Package extract pulls post headers and bodies out of a board page that
// arrives as a stream of small text fragments.
//
// # Components
//
//   - Marker and MarkerSet: the literal needles that delimit a post
//   - Scanner: the state machine that consumes fragments and emits Cycles
//   - Unescape: the single-pass decoder applied to each finished header and body
//
// A Scanner never holds more than the current header and body text. Needles
// may straddle fragment boundaries; the partial match offset survives between
// calls to Feed, and bytes that were appended to an accumulator before they
// were recognised as the start of an end marker are truncated again once the
// marker completes.
//
// # Usage
//
//	sc := extract.NewScanner()
//	for fragment := range fragments {
//	    err := sc.Feed(fragment, func(c extract.Cycle) error {
//	        header, err := extract.Unescape(c.Header)
//	        ...
//	    })
//	}
//
// # Marker precondition
//
// The matcher restarts at the first needle byte on a mismatch and never falls
// back to a shorter partial match. That is only correct for needles without a
// border (a proper prefix that is also a suffix), so NewMarker rejects such
// needles with ErrSelfOverlapping.
package extract
