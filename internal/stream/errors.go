package stream

import "errors"

// ErrBufferTooSmall is returned when the read buffer cannot hold one
// complete UTF-8 sequence.
var ErrBufferTooSmall = errors.New("buffer too small: must hold at least 4 bytes")
