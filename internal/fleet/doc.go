// Package fleet owns the latest-known state per tram.
//
// Ownership boundary:
// - insertion-ordered tram registry
// - latest-value-wins application of decoded records
// - point-in-time snapshots for presenters
package fleet
