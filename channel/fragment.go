package channel

import (
	"fmt"

	"github.com/naia-go/naia/wire"
)

// fragmentHeaderBytes is a conservative estimate of a fragment's
// framing overhead (fragment_id + fragment_index + total_fragments +
// payload length prefix) used to size fragment slices under budget.
const fragmentHeaderBytes = 2 + 2 + 2 + 2

// Fragment is one slice of an oversized message (§4.4).
type Fragment struct {
	FragmentID     uint16
	FragmentIndex  uint16
	TotalFragments uint16
	Payload        []byte
}

func (f Fragment) Encode(w *wire.Writer) {
	w.WriteU16(f.FragmentID)
	w.WriteU16(f.FragmentIndex)
	w.WriteU16(f.TotalFragments)
	w.WriteVarU64(uint64(len(f.Payload)))
	w.WriteBytes(f.Payload)
}

func DecodeFragment(r *wire.Reader) (Fragment, error) {
	var f Fragment
	var err error
	if f.FragmentID, err = r.ReadU16(); err != nil {
		return f, err
	}
	if f.FragmentIndex, err = r.ReadU16(); err != nil {
		return f, err
	}
	if f.TotalFragments, err = r.ReadU16(); err != nil {
		return f, err
	}
	plen, err := r.ReadVarU64()
	if err != nil {
		return f, err
	}
	if f.Payload, err = r.ReadBytes(int(plen)); err != nil {
		return f, err
	}
	return f, nil
}

// Fragmenter splits an oversized message into fragments that each fit
// within maxFragmentPayload bytes, tagging every fragment with a
// shared, monotonically increasing fragment id so the remote can tell
// fragments of different messages apart even if reassembly overlaps.
type Fragmenter struct {
	nextID uint16
}

func NewFragmenter() *Fragmenter { return &Fragmenter{} }

// Split divides message into fragments no larger than
// maxFragmentPayload bytes each. Panics if maxFragmentPayload is too
// small to make progress (caller bug, not a runtime condition).
func (f *Fragmenter) Split(message []byte, maxFragmentPayload int) []Fragment {
	if maxFragmentPayload <= 0 {
		panic("channel: maxFragmentPayload must be positive")
	}
	total := (len(message) + maxFragmentPayload - 1) / maxFragmentPayload
	if total == 0 {
		total = 1
	}
	id := f.nextID
	f.nextID++

	fragments := make([]Fragment, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxFragmentPayload
		end := start + maxFragmentPayload
		if end > len(message) {
			end = len(message)
		}
		fragments = append(fragments, Fragment{
			FragmentID:     id,
			FragmentIndex:  uint16(i),
			TotalFragments: uint16(total),
			Payload:        message[start:end],
		})
	}
	return fragments
}

// Reassembler collects fragments carried over an OrderedReliable
// synthetic channel and surfaces completed messages once every
// fragment of a given fragment id has arrived.
type Reassembler struct {
	partial map[uint16]*partialMessage
}

type partialMessage struct {
	total  uint16
	chunks map[uint16][]byte
}

func NewReassembler() *Reassembler {
	return &Reassembler{partial: make(map[uint16]*partialMessage)}
}

// Add admits one fragment, returning the reassembled message (and
// true) once all of its siblings have arrived.
func (r *Reassembler) Add(f Fragment) ([]byte, bool, error) {
	if f.TotalFragments == 0 {
		return nil, false, fmt.Errorf("channel: fragment %d declares zero total_fragments", f.FragmentID)
	}
	pm, ok := r.partial[f.FragmentID]
	if !ok {
		pm = &partialMessage{total: f.TotalFragments, chunks: make(map[uint16][]byte)}
		r.partial[f.FragmentID] = pm
	}
	pm.chunks[f.FragmentIndex] = f.Payload

	if uint16(len(pm.chunks)) < pm.total {
		return nil, false, nil
	}

	out := make([]byte, 0)
	for i := uint16(0); i < pm.total; i++ {
		chunk, ok := pm.chunks[i]
		if !ok {
			return nil, false, nil // shouldn't happen given the length check, but stay defensive
		}
		out = append(out, chunk...)
	}
	delete(r.partial, f.FragmentID)
	return out, true, nil
}
