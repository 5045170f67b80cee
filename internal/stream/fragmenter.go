package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultBufferSize is the default read size. At this size most markers
// straddle a fragment boundary.
const DefaultBufferSize = 11

// Fragmenter reads r in chunks of at most the configured buffer size and
// yields them as UTF-8 fragments. It is not safe for concurrent use.
type Fragmenter struct {
	r   io.Reader
	buf []byte

	// carry is the number of bytes at the head of buf left over from the
	// previous read because they start an incomplete rune.
	carry int

	bytesRead int64
	fragments int
	eof       bool
}

// Option configures a Fragmenter.
type Option func(*Fragmenter)

// WithBufferSize sets the read buffer size.
func WithBufferSize(n int) Option {
	return func(f *Fragmenter) {
		f.buf = make([]byte, n)
	}
}

// NewFragmenter returns a Fragmenter over r.
func NewFragmenter(r io.Reader, opts ...Option) (*Fragmenter, error) {
	f := &Fragmenter{
		r:   r,
		buf: make([]byte, DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(f)
	}
	if len(f.buf) < utf8.UTFMax {
		return nil, fmt.Errorf("%w (got %d)", ErrBufferTooSmall, len(f.buf))
	}
	return f, nil
}

// Next returns the next fragment. It returns io.EOF once the stream is
// exhausted and every byte has been delivered. A read that returns no
// bytes and no error is treated as the end of the stream.
//
// Invalid UTF-8 is replaced with U+FFFD.
func (f *Fragmenter) Next() (string, error) {
	for {
		if f.eof {
			return f.flush()
		}

		n, err := f.r.Read(f.buf[f.carry:])
		f.bytesRead += int64(n)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read stream: %w", err)
		}
		if n == 0 || errors.Is(err, io.EOF) {
			f.eof = true
		}
		if n == 0 {
			continue
		}

		filled := f.carry + n
		cut := completePrefix(f.buf[:filled])
		if cut == 0 && filled < len(f.buf) && !f.eof {
			// Nothing decodable yet; read more behind the partial rune.
			f.carry = filled
			continue
		}
		if cut == 0 {
			// A full buffer with no rune boundary is not UTF-8.
			cut = filled
		}

		fragment := strings.ToValidUTF8(string(f.buf[:cut]), string(utf8.RuneError))
		f.carry = copy(f.buf, f.buf[cut:filled])
		f.fragments++
		return fragment, nil
	}
}

// flush delivers the carried tail once the reader is exhausted.
func (f *Fragmenter) flush() (string, error) {
	if f.carry == 0 {
		return "", io.EOF
	}
	fragment := strings.ToValidUTF8(string(f.buf[:f.carry]), string(utf8.RuneError))
	f.carry = 0
	f.fragments++
	return fragment, nil
}

// BytesRead returns the number of bytes read from the underlying reader.
func (f *Fragmenter) BytesRead() int64 {
	return f.bytesRead
}

// Fragments returns the number of fragments delivered so far.
func (f *Fragmenter) Fragments() int {
	return f.fragments
}

// completePrefix returns the length of the longest prefix of b that does
// not end inside a UTF-8 sequence which a later read could complete.
func completePrefix(b []byte) int {
	// Look back over at most UTFMax-1 bytes for the start of the last rune.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax+1; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
