package link


// Fragmenter implements spec §4.1's fragmentation contract: the adapter
// hands a full wire buffer to Fragment when it exceeds the link's MTU, and
// feeds received fragments to Reassemble until a complete buffer emerges.
type Fragmenter interface {
	// Fragment splits wire into ordered pieces no larger than mtu, each
	// carrying its own fragment header.
	Fragment(wire []byte, mtu int) [][]byte

	// Reassemble folds one received fragment into in-progress state,
	// returning the complete buffer once the last ordered fragment
	// arrives, or (nil, false) if more are needed. Out-of-order delivery
	// drops the partial assembly (spec §4.1).
	Reassemble(fragment []byte) ([]byte, bool)
}

// befsHeaderLen is 1 byte for the fragment index, 1 byte for the fragment
// count — a minimal Begin/End-Fragment-Sequence-style header, named after
// the source's BEFS (Begin/End Fragment Sequence) framing convention
// referenced in spec §4.1/§6.
const befsHeaderLen = 2

// befsFragmenter is the adapter's default fragmenter: ordered fragment
// numbers starting at 0, reassembly aborts on any gap.
type befsFragmenter struct {
	total     int
	have      int
	fragments [][]byte
}

// NewBefsFragmenter constructs the default BEFS-style fragmenter.
func NewBefsFragmenter() Fragmenter {
	return &befsFragmenter{}
}

// Fragment splits wire into ceil(len/(mtu-header)) pieces, per spec §4.1.
// Every piece carries the header, including the single piece of a packet
// that already fits, so Reassemble can read whatever Fragment produced.
func (f *befsFragmenter) Fragment(wire []byte, mtu int) [][]byte {
	payloadMax := mtu - befsHeaderLen
	if payloadMax <= 0 {
		return [][]byte{wire}
	}

	count := (len(wire) + payloadMax - 1) / payloadMax
	if count < 1 {
		count = 1
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * payloadMax
		end := start + payloadMax
		if end > len(wire) {
			end = len(wire)
		}
		frag := make([]byte, befsHeaderLen+(end-start))
		frag[0] = byte(i)
		frag[1] = byte(count)
		copy(frag[befsHeaderLen:], wire[start:end])
		out = append(out, frag)
	}
	return out
}

// Reassemble implements in-order reassembly with restart-on-gap (spec §4.1).
func (f *befsFragmenter) Reassemble(fragment []byte) ([]byte, bool) {
	if len(fragment) < befsHeaderLen {
		f.reset()
		return nil, false
	}
	index := int(fragment[0])
	count := int(fragment[1])
	payload := fragment[befsHeaderLen:]

	if count == 1 {
		f.reset()
		return append([]byte{}, payload...), true
	}

	if index == 0 {
		f.total = count
		f.have = 0
		f.fragments = make([][]byte, count)
	}
	if f.fragments == nil || count != f.total || index != f.have {
		// Out of order or no in-progress assembly matching this fragment.
		f.reset()
		return nil, false
	}

	f.fragments[index] = append([]byte{}, payload...)
	f.have++
	if f.have < f.total {
		return nil, false
	}

	var out []byte
	for _, frag := range f.fragments {
		out = append(out, frag...)
	}
	f.reset()
	return out, true
}

func (f *befsFragmenter) reset() {
	f.total = 0
	f.have = 0
	f.fragments = nil
}
