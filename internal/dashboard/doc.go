// Package dashboard renders registry snapshots for a terminal.
//
// Ownership boundary:
// - bubbletea model with periodic refresh
// - plain text printer for non-interactive output
//
// Presenters only read snapshots; they never mutate the registry.
package dashboard
