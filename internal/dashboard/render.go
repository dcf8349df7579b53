package dashboard

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danmuck/tramdash/internal/fleet"
)

// SnapshotSource is the read side of the registry.
type SnapshotSource interface {
	Snapshot() []fleet.TramRecord
	Version() uint64
}

const separator = "========================================================"

// sanitize replaces control characters and invalid UTF-8 in feed values so
// a publisher cannot drive the terminal with escape sequences.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s)
}

func orDash(value string, ok bool) string {
	if !ok {
		return "-"
	}
	return sanitize(value)
}

// RenderText writes one dashboard frame in the plain layout.
func RenderText(w io.Writer, trams []fleet.TramRecord) error {
	var b strings.Builder
	b.WriteString("\n" + separator + "\n")
	if len(trams) == 0 {
		b.WriteString("No trams reported yet.\n")
	}
	for _, t := range trams {
		fmt.Fprintf(&b, "Tram %s:\n", sanitize(t.ID))
		fmt.Fprintf(&b, "\tLocation: %s\n", orDash(t.Location, t.HasLocation))
		fmt.Fprintf(&b, "\tPassenger Count: %s\n", orDash(t.PassengerCount, t.HasPassengerCount))
		b.WriteString("\n")
	}
	b.WriteString(separator + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
