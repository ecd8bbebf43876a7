package channel

import "github.com/naia-go/naia/seq16"

// History buffers one value per tick so a client can replay its own
// recent inputs when reconciling a server correction (supplements
// spec.md's TickBuffered channel with the client-side replay log the
// original implementation keeps alongside it).
//
// Entries must be inserted in strictly increasing tick order; History
// only ever grows forward in time.
type History[T any] struct {
	ticks  []uint16
	values []T
}

func NewHistory[T any]() *History[T] {
	return &History[T]{}
}

// CanInsert reports whether tick is strictly newer than the most
// recently inserted one (or whether nothing has been inserted yet).
func (h *History[T]) CanInsert(tick uint16) bool {
	if len(h.ticks) == 0 {
		return true
	}
	return seq16.After(tick, h.ticks[len(h.ticks)-1])
}

// Insert records value for tick. Panics if tick does not come after
// the most recent entry, mirroring the original's invariant that this
// history only ever moves forward.
func (h *History[T]) Insert(tick uint16, value T) {
	if !h.CanInsert(tick) {
		panic("channel: History.Insert requires strictly increasing ticks")
	}
	h.ticks = append(h.ticks, tick)
	h.values = append(h.values, value)
}

// Replays discards every entry at or before startTick and returns the
// remaining entries oldest-first, for replaying on top of a server
// correction anchored at startTick.
func (h *History[T]) Replays(startTick uint16) []TickedValue[T] {
	cut := 0
	for cut < len(h.ticks) && !seq16.After(h.ticks[cut], startTick) {
		cut++
	}
	h.ticks = h.ticks[cut:]
	h.values = h.values[cut:]

	out := make([]TickedValue[T], len(h.ticks))
	for i := range h.ticks {
		out[i] = TickedValue[T]{Tick: h.ticks[i], Value: h.values[i]}
	}
	return out
}

// Len reports how many entries remain buffered.
func (h *History[T]) Len() int { return len(h.ticks) }

// TickedValue pairs a buffered value with the tick it was recorded for.
type TickedValue[T any] struct {
	Tick  uint16
	Value T
}
