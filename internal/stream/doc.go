// Package stream drives the feed pipeline for one connection.
//
// Ownership boundary:
// - read loop over an io.Reader
// - tokenizer -> assembler -> registry, one chunk fully drained before the next read
// - reporting of malformed, unknown, and truncated input
//
// A Consumer owns its tokenizer and assembler exclusively. Registry updates
// are applied in arrival order, so registry state is always a prefix of the
// feed.
package stream
