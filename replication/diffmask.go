// Package replication implements the host/remote replication engine
// of spec.md §4.5: diff-mask tracked component mutation, the
// spawn/insert/update/remove/despawn action pipeline, per-connection
// scope, and the entity/user caches the host uses to build it.
package replication

// DiffMask is a bitset with one bit per replicated property of a
// component, one instance per (component, receiving connection) pair
// (§3).
type DiffMask struct {
	bits []byte
}

// NewDiffMask allocates a mask sized for propertyCount bits, all clear.
func NewDiffMask(propertyCount int) *DiffMask {
	return &DiffMask{bits: make([]byte, (propertyCount+7)/8)}
}

func (d *DiffMask) Set(propertyIndex int) {
	d.bits[propertyIndex/8] |= 1 << uint(propertyIndex%8)
}

func (d *DiffMask) Clear(propertyIndex int) {
	d.bits[propertyIndex/8] &^= 1 << uint(propertyIndex%8)
}

func (d *DiffMask) IsSet(propertyIndex int) bool {
	return d.bits[propertyIndex/8]&(1<<uint(propertyIndex%8)) != 0
}

// IsClean reports whether no bits are set.
func (d *DiffMask) IsClean() bool {
	for _, b := range d.bits {
		if b != 0 {
			return false
		}
	}
	return true
}

// ClearAll zeroes every bit, e.g. once a fresh spawn has shipped every
// property and no partial update is needed.
func (d *DiffMask) ClearAll() {
	for i := range d.bits {
		d.bits[i] = 0
	}
}

// Snapshot returns a copy of the bits suitable for associating with an
// in-flight outgoing packet (so the eventual ack/drop can be matched
// against exactly the bits that were shipped, per §4.5's "each
// outgoing update captures a snapshot of the DiffMask").
func (d *DiffMask) Snapshot() []bool {
	out := make([]bool, len(d.bits)*8)
	for i := range out {
		out[i] = d.IsSet(i)
	}
	return out
}

// ClearBits clears exactly the bits set in snapshot (used once the
// packet carrying that snapshot is acked).
func (d *DiffMask) ClearBits(snapshot []bool) {
	for i, set := range snapshot {
		if set {
			d.Clear(i)
		}
	}
}

// SetIndices returns the property indices currently dirty, in
// ascending order, for iterating "for each set bit" encoders.
func (d *DiffMask) SetIndices() []int {
	var out []int
	for i, b := range d.bits {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				out = append(out, i*8+bit)
			}
		}
	}
	return out
}
