// Package interp implements client-side interpolation between the
// last two received values of a numeric replicated property (§C.2): a
// prediction-heavy game loop can render a smooth position between
// ticks instead of snapping to whatever value last arrived over the
// wire. Opt-in per component: nothing here runs unless the host
// application feeds it samples itself.
package interp

import "github.com/naia-go/naia/seq16"

// Sample is one numeric property value tagged with the tick it was
// observed at.
type Sample struct {
	Tick  uint16
	Value float64
}

// Tracker holds the last two recorded samples of one interpolatable
// property and produces a linearly interpolated value between them.
type Tracker struct {
	prev, cur Sample
	have      int
}

func NewTracker() *Tracker { return &Tracker{} }

// Record admits a newly observed sample. Samples at or before the
// most recently recorded tick are ignored as stale or duplicate
// network arrivals, mirroring the wrap-aware ordering every other
// receiver in this module applies (seq16.After).
func (t *Tracker) Record(s Sample) {
	if t.have > 0 && !seq16.After(s.Tick, t.cur.Tick) {
		return
	}
	if t.have > 0 {
		t.prev = t.cur
	}
	t.cur = s
	if t.have < 2 {
		t.have++
	}
}

// Interpolate returns a value between the last two recorded samples
// for atTick, a fractional tick (integer tick plus progress toward the
// next, as produced by tick.Manager.FractionalTick). Before two
// samples have arrived it returns whatever is available (the single
// sample, or zero); the interpolation fraction is clamped to [0,1], so
// querying past the most recent sample holds at its value rather than
// extrapolating.
func (t *Tracker) Interpolate(atTick float64) float64 {
	switch t.have {
	case 0:
		return 0
	case 1:
		return t.cur.Value
	}
	span := float64(uint16(t.cur.Tick - t.prev.Tick))
	if span <= 0 {
		return t.cur.Value
	}
	frac := (atTick - float64(t.prev.Tick)) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return t.prev.Value + (t.cur.Value-t.prev.Value)*frac
}

// Key identifies one interpolatable property: a replicated component
// on a host-local entity handle, by property index within that
// component (§4.5's property ordering). Left untyped against
// entity/protocol so this package stays dependency-free; callers adapt
// their own id types into it.
type Key struct {
	Entity   uint64
	Kind     uint16
	Property int
}

// Manager multiplexes a Tracker per Key, for a world holding many
// interpolatable properties across many entities.
type Manager struct {
	trackers map[Key]*Tracker
}

func NewManager() *Manager {
	return &Manager{trackers: make(map[Key]*Tracker)}
}

// Record admits sample for key, creating its Tracker on first use.
func (m *Manager) Record(key Key, sample Sample) {
	t, ok := m.trackers[key]
	if !ok {
		t = NewTracker()
		m.trackers[key] = t
	}
	t.Record(sample)
}

// Interpolate reports key's interpolated value at atTick, and whether
// any sample has been recorded for it at all.
func (m *Manager) Interpolate(key Key, atTick float64) (float64, bool) {
	t, ok := m.trackers[key]
	if !ok {
		return 0, false
	}
	return t.Interpolate(atTick), true
}

// Forget drops key's tracker, e.g. once its entity despawns.
func (m *Manager) Forget(key Key) {
	delete(m.trackers, key)
}
