package encoding

import "io"

// WireView is a parsing cursor over a Wire. It tracks position across
// segment boundaries without copying, used by fw/codec to walk TLV streams
// (spec §6).
type WireView struct {
	wire Wire
	apos int // absolute position from start of wire
	rpos int // relative position within segment
	seg  int // segment index
	end  int // last allowed position (absolute)
}

// NewWireView constructs a view over every segment of wire.
func NewWireView(wire Wire) WireView {
	end := 0
	for _, seg := range wire {
		end += len(seg)
	}
	return WireView{wire: wire, end: end}
}

// NewBufferView constructs a view over a single contiguous buffer.
func NewBufferView(buf Buffer) WireView {
	return NewWireView(Wire{buf})
}

// IsEOF reports whether the view has been consumed to its end.
func (r *WireView) IsEOF() bool {
	return r.apos >= r.end
}

// ReadByte reads one byte, advancing across a segment boundary if needed.
func (r *WireView) ReadByte() (byte, error) {
	if r.IsEOF() {
		return 0, io.EOF
	}
	b := r.wire[r.seg][r.rpos]
	r.apos++
	r.rpos++
	if r.rpos == len(r.wire[r.seg]) {
		r.rpos = 0
		r.seg++
	}
	return b, nil
}

// readSeg reads up to size bytes from the current segment without copying.
func (r *WireView) readSeg(size int) []byte {
	segleft := len(r.wire[r.seg]) - r.rpos
	if size < segleft {
		ret := r.wire[r.seg][r.rpos : r.rpos+size]
		r.apos += size
		r.rpos += size
		return ret
	}
	ret := r.wire[r.seg][r.rpos:]
	r.apos += segleft
	r.rpos = 0
	r.seg++
	return ret
}

// ReadBuf reads size bytes, copying only when they span more than one
// segment.
func (r *WireView) ReadBuf(size int) ([]byte, error) {
	if size > r.end-r.apos {
		return nil, ErrBufferOverflow
	}
	if size == 0 {
		return []byte{}, nil
	}

	if size <= len(r.wire[r.seg])-r.rpos {
		ret := r.wire[r.seg][r.rpos : r.rpos+size]
		r.apos += size
		r.rpos += size
		if r.rpos == len(r.wire[r.seg]) {
			r.rpos = 0
			r.seg++
		}
		return ret, nil
	}

	ret := make([]byte, size)
	written := 0
	for written < size {
		seg := r.readSeg(size - written)
		copy(ret[written:], seg)
		written += len(seg)
	}
	return ret, nil
}
