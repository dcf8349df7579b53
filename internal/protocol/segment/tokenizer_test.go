package segment

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/danmuck/tramdash/internal/testutil/testlog"
)

func encodeAll(t *testing.T, contents ...string) []byte {
	t.Helper()
	var out []byte
	for _, c := range contents {
		var err error
		out, err = AppendString(out, c)
		if err != nil {
			t.Fatalf("encode %q: %v", c, err)
		}
	}
	return out
}

func collect(tok *Tokenizer, chunks ...[]byte) []Segment {
	var out []Segment
	for _, chunk := range chunks {
		for seg := range tok.Feed(chunk) {
			out = append(out, seg)
		}
	}
	return out
}

func assertSegments(t *testing.T, got []Segment, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("segment count mismatch: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if int(got[i].Length) != len(got[i].Content) {
			t.Fatalf("segment %d length=%d content=%d", i, got[i].Length, len(got[i].Content))
		}
		if got[i].Text() != want[i] {
			t.Fatalf("segment %d mismatch: got=%q want=%q", i, got[i].Text(), want[i])
		}
	}
}

func TestFeedSingleChunk(t *testing.T) {
	testlog.Start(t)
	stream := encodeAll(t, "MSGTYPE", "LOCATION", "TRAM_ID", "TRAMABC", "VALUE", "CITY")
	got := collect(NewTokenizer(), stream)
	assertSegments(t, got, []string{"MSGTYPE", "LOCATION", "TRAM_ID", "TRAMABC", "VALUE", "CITY"})
}

func TestFeedZeroLengthSegment(t *testing.T) {
	testlog.Start(t)
	got := collect(NewTokenizer(), []byte{0, 1, 'x', 0})
	assertSegments(t, got, []string{"", "x", ""})
}

func TestFeedChunkBoundaryInvariance(t *testing.T) {
	testlog.Start(t)
	long := string(bytes.Repeat([]byte{'z'}, MaxContentLen))
	want := []string{"MSGTYPE", "PASSENGER_COUNT", "", "TRAM1", long, "22"}
	stream := encodeAll(t, want...)

	for i := 0; i <= len(stream); i++ {
		got := collect(NewTokenizer(), stream[:i], stream[i:])
		assertSegments(t, got, want)
	}

	bytewise := make([][]byte, 0, len(stream))
	for i := range stream {
		bytewise = append(bytewise, stream[i:i+1])
	}
	assertSegments(t, collect(NewTokenizer(), bytewise...), want)

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var chunks [][]byte
		for rest := stream; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		assertSegments(t, collect(NewTokenizer(), chunks...), want)
	}
}

func TestFeedCopiesChunk(t *testing.T) {
	testlog.Start(t)
	tok := NewTokenizer()
	chunk := []byte{3, 'a', 'b'}
	for range tok.Feed(chunk) {
		t.Fatalf("unexpected segment from partial chunk")
	}
	chunk[1] = 'X'
	got := collect(tok, []byte{'c'})
	assertSegments(t, got, []string{"abc"})
}

func TestFeedBreakKeepsRemainderBuffered(t *testing.T) {
	testlog.Start(t)
	tok := NewTokenizer()
	stream := encodeAll(t, "one", "two", "three")
	for seg := range tok.Feed(stream) {
		if seg.Text() != "one" {
			t.Fatalf("unexpected first segment %q", seg.Text())
		}
		break
	}
	seg, ok := tok.Next()
	if !ok || seg.Text() != "two" {
		t.Fatalf("expected buffered segment two, got ok=%v seg=%q", ok, seg.Text())
	}
	assertSegments(t, collect(tok, nil), []string{"three"})
	if tok.Buffered() != 0 {
		t.Fatalf("expected empty buffer, got %d", tok.Buffered())
	}
}

func TestCloseTruncatedContent(t *testing.T) {
	testlog.Start(t)
	tok := NewTokenizer()
	chunk := append([]byte{255}, bytes.Repeat([]byte{'a'}, 10)...)
	if got := collect(tok, chunk); len(got) != 0 {
		t.Fatalf("expected no segments, got %d", len(got))
	}
	err := tok.Close()
	if !errors.Is(err, protocol.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	var te *TruncatedError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TruncatedError, got %T", err)
	}
	if te.Expected != 255 || te.Buffered != 10 {
		t.Fatalf("unexpected truncation detail: %+v", te)
	}
	if tok.Buffered() != 0 {
		t.Fatalf("partial segment should be discarded")
	}
}

func TestCloseCleanStream(t *testing.T) {
	testlog.Start(t)
	tok := NewTokenizer()
	collect(tok, encodeAll(t, "MSGTYPE", "LOCATION"))
	if err := tok.Close(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
}

func TestCloseUndrainedBytes(t *testing.T) {
	testlog.Start(t)
	tok := NewTokenizer()
	_ = tok.Feed(encodeAll(t, "ab"))
	err := tok.Close()
	var te *TruncatedError
	if !errors.As(err, &te) || te.Expected != -1 || te.Buffered != 3 {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestAppendSegmentTooLong(t *testing.T) {
	testlog.Start(t)
	_, err := Encode(make([]byte, MaxContentLen+1))
	if !errors.Is(err, protocol.ErrSegmentTooLong) {
		t.Fatalf("expected ErrSegmentTooLong, got %v", err)
	}
	b, err := Encode(make([]byte, MaxContentLen))
	if err != nil {
		t.Fatalf("encode max: %v", err)
	}
	if len(b) != PrefixLen+MaxContentLen || b[0] != 255 {
		t.Fatalf("unexpected max encoding: len=%d prefix=%d", len(b), b[0])
	}
}
