package segment

import "iter"

// Tokenizer incrementally decodes a byte stream into Segments. Chunk
// boundaries carry no meaning; bytes are buffered until a whole token is
// available. The zero value is ready to use. A Tokenizer is not safe for
// concurrent use.
type Tokenizer struct {
	buf []byte
	off int

	expected    uint8
	hasExpected bool
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Feed appends chunk to the pending buffer and returns the segments that are
// now complete. The chunk is copied before Feed returns, so the caller may
// reuse it. Breaking out of the sequence early keeps the remaining bytes
// buffered for the next Feed or Next call.
func (t *Tokenizer) Feed(chunk []byte) iter.Seq[Segment] {
	t.buf = append(t.buf, chunk...)
	return func(yield func(Segment) bool) {
		for {
			seg, ok := t.Next()
			if !ok {
				return
			}
			if !yield(seg) {
				return
			}
		}
	}
}

// Next pops one complete segment from the buffer.
func (t *Tokenizer) Next() (Segment, bool) {
	if !t.hasExpected {
		if t.off >= len(t.buf) {
			t.compact()
			return Segment{}, false
		}
		t.expected = t.buf[t.off]
		t.hasExpected = true
		t.off++
	}

	n := int(t.expected)
	if len(t.buf)-t.off < n {
		t.compact()
		return Segment{}, false
	}
	content := make([]byte, n)
	copy(content, t.buf[t.off:t.off+n])
	t.off += n
	t.hasExpected = false
	return Segment{Length: t.expected, Content: content}, true
}

// Buffered reports bytes held that have not yet been emitted as segments.
func (t *Tokenizer) Buffered() int {
	return len(t.buf) - t.off
}

// Pending reports whether a length byte has been consumed without its content.
func (t *Tokenizer) Pending() (expected int, ok bool) {
	return int(t.expected), t.hasExpected
}

// Close signals end-of-stream. Any partial segment is discarded and reported
// as a *TruncatedError.
func (t *Tokenizer) Close() error {
	defer t.Reset()
	buffered := t.Buffered()
	if t.hasExpected {
		return &TruncatedError{Expected: int(t.expected), Buffered: buffered}
	}
	if buffered > 0 {
		return &TruncatedError{Expected: -1, Buffered: buffered}
	}
	return nil
}

func (t *Tokenizer) Reset() {
	t.buf = t.buf[:0]
	t.off = 0
	t.expected = 0
	t.hasExpected = false
}

func (t *Tokenizer) compact() {
	if t.off == 0 {
		return
	}
	t.buf = append(t.buf[:0], t.buf[t.off:]...)
	t.off = 0
}
