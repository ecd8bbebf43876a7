package channel

import (
	"container/heap"

	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/seq16"
)

// TickBufferedSender queues one payload per local tick; payloads are
// tagged with the tick they were produced for so the remote can line
// them up against its own tick timeline (§4.3).
type TickBufferedSender struct {
	kind    Kind
	pending []Ticked
}

func NewTickBufferedSender(kind Kind) *TickBufferedSender {
	return &TickBufferedSender{kind: kind}
}

// Enqueue queues payload tagged with the local tick it was produced
// for. TickBuffered messages are not resent: a later call for the same
// tick replaces the earlier one, mirroring "the newest input for a
// tick wins" input semantics.
func (s *TickBufferedSender) Enqueue(tick uint16, payload []byte) {
	for i, m := range s.pending {
		if m.TargetTick == tick {
			s.pending[i].Payload = payload
			return
		}
	}
	s.pending = append(s.pending, Ticked{TargetTick: tick, Payload: payload})
}

// Collect drains as many queued messages as fit into b. Unlike
// reliable channels, anything that doesn't fit is dropped rather than
// requeued: a stale tick-buffered input is worthless once its tick has
// passed.
func (s *TickBufferedSender) Collect(b *packet.Builder) {
	if len(s.pending) == 0 {
		return
	}
	var sent []Ticked
	for _, m := range s.pending {
		candidate := append(sent, m)
		if len(EncodeTickBufferedBlock(s.kind, candidate)) > b.Remaining() {
			break
		}
		sent = candidate
	}
	if len(sent) > 0 {
		b.TryAdd(EncodeTickBufferedBlock(s.kind, sent))
	}
	s.pending = nil
}

// tickItem is one entry in the receiver's min-tick priority queue.
type tickItem struct {
	tick    uint16
	payload []byte
}

// tickHeap orders by "oldest deliverable tick first", using wrap-aware
// seq16 comparison so the heap behaves correctly across tick rollover
// (grounded on the original client's TickQueue, which compares with
// sequence_greater_than rather than plain integer order).
type tickHeap []tickItem

func (h tickHeap) Len() int { return len(h) }
func (h tickHeap) Less(i, j int) bool {
	if h[i].tick == h[j].tick {
		return false
	}
	return seq16.After(h[j].tick, h[i].tick)
}
func (h tickHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)   { *h = append(*h, x.(tickItem)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TickBufferedReceiver holds incoming messages until the local tick
// they target has arrived, then releases them in tick order.
type TickBufferedReceiver struct {
	heap tickHeap
}

func NewTickBufferedReceiver() *TickBufferedReceiver {
	r := &TickBufferedReceiver{}
	heap.Init(&r.heap)
	return r
}

// Receive admits msgs into the reorder buffer.
func (r *TickBufferedReceiver) Receive(msgs []Ticked) {
	for _, m := range msgs {
		heap.Push(&r.heap, tickItem{tick: m.TargetTick, payload: m.Payload})
	}
}

// DrainUpTo returns every buffered message whose target tick is
// exactly currentTick, oldest first. A message whose target tick has
// already passed is stale input and is discarded rather than
// delivered (§4.3); one still targeting a future tick stays buffered.
func (r *TickBufferedReceiver) DrainUpTo(currentTick uint16) [][]byte {
	var out [][]byte
	for r.heap.Len() > 0 {
		next := r.heap[0]
		if seq16.After(next.tick, currentTick) {
			break
		}
		item := heap.Pop(&r.heap).(tickItem)
		if item.tick == currentTick {
			out = append(out, item.payload)
		}
	}
	return out
}
