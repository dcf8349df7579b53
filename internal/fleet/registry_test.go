package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/danmuck/tramdash/internal/protocol/record"
	"github.com/danmuck/tramdash/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

var fixedNow = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.now = func() time.Time { return fixedNow }
	return r
}

func mustApply(t *testing.T, r *Registry, msg record.Message) ApplyResult {
	t.Helper()
	res, err := r.Apply(msg)
	if err != nil {
		t.Fatalf("apply %+v: %v", msg, err)
	}
	return res
}

func TestApplyMergesLocationAndPassengerCount(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	if res := mustApply(t, r, record.Location("TRAM1", "Flinders Street")); !res.Created {
		t.Fatalf("expected first sighting to create record")
	}
	if res := mustApply(t, r, record.PassengerCount("TRAM1", "22")); res.Created {
		t.Fatalf("expected update of existing record")
	}

	want := []TramRecord{{
		ID:                "TRAM1",
		Location:          "Flinders Street",
		HasLocation:       true,
		PassengerCount:    "22",
		HasPassengerCount: true,
		UpdatedAt:         fixedNow,
	}}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyLatestValueWinsPerField(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	mustApply(t, r, record.PassengerCount("T1", "9"))
	mustApply(t, r, record.Location("T1", "A"))
	mustApply(t, r, record.Location("T1", "B"))

	rec, ok := r.Get("T1")
	if !ok {
		t.Fatalf("expected T1 present")
	}
	if rec.Location != "B" {
		t.Fatalf("expected latest location B, got %q", rec.Location)
	}
	if rec.PassengerCount != "9" || !rec.HasPassengerCount {
		t.Fatalf("passenger count must be untouched by location updates: %+v", rec)
	}
}

func TestApplyFirstSightingSetsOnlyImpliedField(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	mustApply(t, r, record.Location("T1", "Depot"))
	rec, _ := r.Get("T1")
	if !rec.HasLocation || rec.HasPassengerCount || rec.PassengerCount != "" {
		t.Fatalf("unexpected record after location-only sighting: %+v", rec)
	}
}

func TestSnapshotOrderIsFirstSeen(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	mustApply(t, r, record.Location("T3", "x"))
	mustApply(t, r, record.Location("T1", "x"))
	mustApply(t, r, record.Location("T2", "x"))
	mustApply(t, r, record.PassengerCount("T1", "4"))
	mustApply(t, r, record.Location("T3", "y"))

	var ids []string
	for _, rec := range r.Snapshot() {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]string{"T3", "T1", "T2"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 trams, got %d", r.Len())
	}
}

func TestSnapshotIsPointInTimeCopy(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	mustApply(t, r, record.Location("T1", "before"))
	snap := r.Snapshot()
	snap[0].Location = "mutated"
	mustApply(t, r, record.Location("T1", "after"))
	mustApply(t, r, record.Location("T2", "new"))

	if snap[0].Location != "mutated" || len(snap) != 1 {
		t.Fatalf("snapshot changed underneath caller: %+v", snap)
	}
	rec, _ := r.Get("T1")
	if rec.Location != "after" {
		t.Fatalf("caller mutation leaked into registry: %+v", rec)
	}
}

func TestApplyUnknownKindLeavesRegistryUnchanged(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	before := r.Version()
	_, err := r.Apply(record.Message{Kind: record.KindUnknown, Type: "FOO", TramID: "X", PayloadKey: "VALUE", Payload: "bar"})
	if !errors.Is(err, protocol.ErrUnknownMessageKind) {
		t.Fatalf("expected ErrUnknownMessageKind, got %v", err)
	}
	if r.Len() != 0 || r.Version() != before {
		t.Fatalf("unknown kind mutated registry: len=%d version=%d", r.Len(), r.Version())
	}
}

func TestVersionIncrementsPerMutation(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	mustApply(t, r, record.Location("T1", "a"))
	mustApply(t, r, record.Location("T1", "a"))
	if r.Version() != 2 {
		t.Fatalf("expected version 2, got %d", r.Version())
	}
}

func TestGetMissingTram(t *testing.T) {
	testlog.Start(t)
	r := newTestRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing tram to return ok=false")
	}
}
