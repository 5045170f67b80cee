package extract

import "unicode/utf8"

// rule replaces a literal sequence with a single byte.
type rule struct {
	from string
	to   byte
}

// rules are the named escapes the board emits. Every needle is border-free.
var rules = [...]rule{
	{from: "<br>", to: '\n'},
	{from: "&nbsp;", to: ' '},
	{from: "&lt;", to: '<'},
	{from: "&gt;", to: '>'},
	{from: "&amp;", to: '&'},
	{from: "&quot;", to: '"'},
	{from: "&apos;", to: '\''},
}

const (
	refPrefix = "&#"
	refEnd    = ';'
)

// numericRef accumulates the digits of a "&#<digits>;" reference.
type numericRef struct {
	active   bool
	value    rune
	digits   int
	overflow bool
}

func (n *numericRef) add(b byte) {
	n.digits++
	if n.overflow {
		return
	}
	n.value = n.value*10 + rune(b-'0')
	if n.value > utf8.MaxRune {
		n.overflow = true
	}
}

// rune returns the referenced code point. References without digits, with
// a value of zero, above U+10FFFF or in the surrogate range are not decoded.
func (n *numericRef) rune() (rune, bool) {
	if n.digits == 0 || n.overflow || n.value == 0 || !utf8.ValidRune(n.value) {
		return 0, false
	}
	return n.value, true
}

// Unescape decodes the named escapes and decimal numeric references in s
// and drops leading spaces. See UnescapeBytes.
func Unescape(s string) (string, error) {
	out, err := UnescapeBytes([]byte(s))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// UnescapeBytes decodes buf in place in a single left-to-right pass and
// returns the shortened slice.
//
// Named rules are matched on input bytes only, so the output of one
// replacement is never re-scanned: "&amp;lt;" decodes to "&lt;". A numeric
// reference is replaced by the UTF-8 encoding of its code point, which is
// never longer than the reference itself. A reference interrupted by a
// non-digit, or one that does not name a valid code point, is left as
// literal text. A space that would become the first output byte is
// dropped, so "  x", "&nbsp;x" and "&#32;x" all decode to "x".
//
// The write cursor w never passes the read cursor r. Bytes in buf[:w] are
// either copied input bytes, ASCII replacements or complete encodings, so a
// single utf8.Valid check on the result covers the whole pass.
func UnescapeBytes(buf []byte) ([]byte, error) {
	var (
		w       int
		matched [len(rules)]int
		prefix  int
		ref     numericRef
	)

	for r := 0; r < len(buf); r++ {
		b := buf[r]

		replaced := false
		for i := range rules {
			from := rules[i].from
			matched[i] = advance(from, b, matched[i])
			if matched[i] == len(from) {
				w -= len(from) - 1
				b = rules[i].to
				matched = [len(rules)]int{}
				replaced = true
				break
			}
		}

		if replaced {
			prefix = 0
			ref = numericRef{}
		} else {
			switch {
			case ref.active && b == refEnd:
				cp, ok := ref.rune()
				start := w - ref.digits - len(refPrefix)
				ref = numericRef{}
				if ok {
					w = start
					if start > 0 || cp != ' ' {
						w += utf8.EncodeRune(buf[start:], cp)
					}
					prefix = 0
					continue
				}
			case ref.active && '0' <= b && b <= '9':
				ref.add(b)
			case ref.active:
				ref = numericRef{}
			}

			prefix = advance(refPrefix, b, prefix)
			if prefix == len(refPrefix) {
				prefix = 0
				ref = numericRef{active: true}
			}
		}

		// The board pads every header and body with a leading space, so a
		// space never starts the output, whether literal or decoded.
		if w == 0 && b == ' ' {
			continue
		}
		buf[w] = b
		w++
	}

	out := buf[:w]
	if !utf8.Valid(out) {
		return nil, ErrInvalidUTF8
	}
	return out, nil
}
