// Package protocol owns the tram feed wire contract.
//
// Ownership boundary:
// - segment: length-prefixed token primitives and the incremental tokenizer
// - record: field pairing, record boundaries, and schema validation
// - shared sentinel errors for both layers
//
// Wire shape:
//
//	token  := length-byte(0..255) content-bytes(exactly length-byte bytes)
//	record := MSGTYPE-token TRAM_ID-token payload-token
//
// Tokens alternate key, value. A repeated MSGTYPE key starts the next record.
package protocol
