package replication

import "github.com/naia-go/naia/wire"

// EncodePartial writes the generic partial-update envelope of §4.5:
// ceil(P/8) mask bytes, followed by the packed value of each property
// whose bit is set in mask, in declaration order. writeProperty is
// called once per set bit, in ascending property-index order, and is
// expected to write that property's value in whatever encoding the
// component defines.
func EncodePartial(w *wire.Writer, mask *DiffMask, propertyCount int, writeProperty func(index int)) {
	maskBytes := (propertyCount + 7) / 8
	for i := 0; i < maskBytes; i++ {
		var b byte
		for bit := 0; bit < 8; bit++ {
			idx := i*8 + bit
			if idx < propertyCount && mask.IsSet(idx) {
				b |= 1 << uint(bit)
			}
		}
		w.WriteByte(b)
	}
	for _, idx := range mask.SetIndices() {
		if idx < propertyCount {
			writeProperty(idx)
		}
	}
}

// DecodePartial reverses EncodePartial: it reads the mask bytes and
// invokes readProperty once per set bit, in ascending index order, so
// the caller can apply that property's value to the destination
// component.
func DecodePartial(r *wire.Reader, propertyCount int, readProperty func(index int) error) error {
	maskBytes := (propertyCount + 7) / 8
	set := make([]bool, propertyCount)
	for i := 0; i < maskBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		for bit := 0; bit < 8; bit++ {
			idx := i*8 + bit
			if idx < propertyCount && b&(1<<uint(bit)) != 0 {
				set[idx] = true
			}
		}
	}
	for idx, isSet := range set {
		if isSet {
			if err := readProperty(idx); err != nil {
				return err
			}
		}
	}
	return nil
}
