package fleet

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/danmuck/tramdash/internal/protocol/record"
	"github.com/rs/zerolog/log"
)

// TramRecord is the latest known state of one tram. The Has* flags report
// whether the matching field has ever been set.
type TramRecord struct {
	ID                string
	Location          string
	HasLocation       bool
	PassengerCount    string
	HasPassengerCount bool
	UpdatedAt         time.Time
}

// ApplyResult describes the effect of one Apply call.
type ApplyResult struct {
	Created bool
}

// Registry stores tram records by id in first-seen order. Apply is intended
// for a single writer; Snapshot, Get, Len, and Version may be called from
// any goroutine.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]*TramRecord
	version uint64
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		order: make([]string, 0),
		items: make(map[string]*TramRecord),
		now:   time.Now,
	}
}

// Apply writes the single field implied by msg.Kind. Unknown kinds leave the
// registry untouched and return an error wrapping ErrUnknownMessageKind.
func (r *Registry) Apply(msg record.Message) (ApplyResult, error) {
	if msg.Kind != record.KindLocation && msg.Kind != record.KindPassengerCount {
		return ApplyResult{}, fmt.Errorf("%w: msgtype=%q tram_id=%q", protocol.ErrUnknownMessageKind, msg.Type, msg.TramID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var res ApplyResult
	rec, ok := r.items[msg.TramID]
	if !ok {
		rec = &TramRecord{ID: msg.TramID}
		r.items[msg.TramID] = rec
		r.order = append(r.order, msg.TramID)
		res.Created = true
		log.Debug().Msgf("fleet.Registry new tram_id=%q trams=%d", msg.TramID, len(r.order))
	}

	switch msg.Kind {
	case record.KindLocation:
		rec.Location = msg.Payload
		rec.HasLocation = true
	case record.KindPassengerCount:
		rec.PassengerCount = msg.Payload
		rec.HasPassengerCount = true
	}
	rec.UpdatedAt = r.now()
	r.version++
	return res, nil
}

// Snapshot returns a copy of every record in first-seen order.
func (r *Registry) Snapshot() []TramRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TramRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out
}

func (r *Registry) Get(id string) (TramRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return TramRecord{}, false
	}
	return *rec, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Version increases on every mutation, so readers can skip unchanged
// snapshots.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
