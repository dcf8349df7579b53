package segment

import (
	"fmt"

	"github.com/danmuck/tramdash/internal/protocol"
)

const (
	PrefixLen     = 1
	MaxContentLen = 255
)

// Segment is one length-prefixed token from the wire.
type Segment struct {
	Length  uint8
	Content []byte
}

// Text returns the content interpreted as text.
func (s Segment) Text() string {
	return string(s.Content)
}

// WireLen is the number of bytes the segment occupies on the wire.
func (s Segment) WireLen() int {
	return PrefixLen + int(s.Length)
}

// TruncatedError reports a segment cut off by end-of-stream.
type TruncatedError struct {
	// Expected is the declared content length, or -1 when the length byte
	// itself was never consumed.
	Expected int
	Buffered int
}

func (e *TruncatedError) Error() string {
	if e.Expected < 0 {
		return fmt.Sprintf("segment: truncated stream: %d unread bytes", e.Buffered)
	}
	return fmt.Sprintf("segment: truncated stream: expected %d content bytes, have %d", e.Expected, e.Buffered)
}

func (e *TruncatedError) Unwrap() error {
	return protocol.ErrTruncatedStream
}

// Encode returns content as a single wire token.
func Encode(content []byte) ([]byte, error) {
	return AppendSegment(make([]byte, 0, PrefixLen+len(content)), content)
}

// AppendSegment appends content as a wire token to dst.
func AppendSegment(dst, content []byte) ([]byte, error) {
	if len(content) > MaxContentLen {
		return dst, fmt.Errorf("%w: %d bytes", protocol.ErrSegmentTooLong, len(content))
	}
	dst = append(dst, byte(len(content)))
	return append(dst, content...), nil
}

// AppendString is AppendSegment for text content.
func AppendString(dst []byte, s string) ([]byte, error) {
	return AppendSegment(dst, []byte(s))
}
