package protocol

import "errors"

var (
	ErrTruncatedStream    = errors.New("protocol: truncated stream")
	ErrMalformedMessage   = errors.New("protocol: malformed message")
	ErrUnknownMessageKind = errors.New("protocol: unknown message kind")
	ErrTransport          = errors.New("protocol: transport error")
	ErrSegmentTooLong     = errors.New("protocol: segment content exceeds 255 bytes")
)
