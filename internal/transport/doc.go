// Package transport owns the feed connection.
//
// Ownership boundary:
// - dial with connect timeout and bounded initial attempts
// - idle read deadlines
// - closing the connection when the run context ends
//
// An established connection is never re-dialed; when it ends, the feed ends.
package transport
