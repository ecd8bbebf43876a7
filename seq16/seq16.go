// Package seq16 implements the circular (wrapping 16-bit) comparison
// arithmetic shared by Tick, PacketIndex, MessageIndex, PingIndex and
// FragmentId (spec.md §3): "a is after b iff (a-b) mod 2^16 ∈ [1, 2^15)".
package seq16

// After reports whether a is sequenced strictly after b under wrapping
// 16-bit arithmetic.
func After(a, b uint16) bool {
	d := a - b
	return d != 0 && d < 0x8000
}

// AfterOrEqual reports whether a is b or sequenced after it.
func AfterOrEqual(a, b uint16) bool {
	return a == b || After(a, b)
}

// Before reports whether a is sequenced strictly before b.
func Before(a, b uint16) bool {
	return After(b, a)
}

// Diff returns the signed distance from b to a, positive when a is
// after b, negative when a is before b. Only meaningful for values
// within 2^15 of each other, per the wrapping-comparison definition.
func Diff(a, b uint16) int32 {
	d := int32(a) - int32(b)
	switch {
	case d > 0x7fff:
		return d - 0x10000
	case d < -0x7fff:
		return d + 0x10000
	default:
		return d
	}
}

// Max returns whichever of a, b is sequenced later.
func Max(a, b uint16) uint16 {
	if After(a, b) {
		return a
	}
	return b
}
