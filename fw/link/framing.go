package link

import (
	"io"

	"github.com/parc-forge/athena/fw/defn"
)

// ReadTlvFramedPacket implements spec §6's TCP/stream framing contract:
// read a minimal fixed-size header, extract packet_length from it, then
// read the remainder. Short reads loop (via io.ReadFull); any header byte
// value is accepted, and only a length field beyond 2^32 is a framing error.
func ReadTlvFramedPacket(r io.Reader) ([]byte, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, err
	}

	typeHead := make([]byte, 1)
	if _, err := io.ReadFull(r, typeHead); err != nil {
		return nil, err
	}
	typeRest, err := tlNumRestLen(typeHead[0])
	if err != nil {
		return nil, err
	}
	typeTail := make([]byte, typeRest)
	if typeRest > 0 {
		if _, err := io.ReadFull(r, typeTail); err != nil {
			return nil, err
		}
	}

	lengthHead := make([]byte, 1)
	if _, err := io.ReadFull(r, lengthHead); err != nil {
		return nil, err
	}
	lengthRest, err := tlNumRestLen(lengthHead[0])
	if err != nil {
		return nil, err
	}
	lengthTail := make([]byte, lengthRest)
	if lengthRest > 0 {
		if _, err := io.ReadFull(r, lengthTail); err != nil {
			return nil, err
		}
	}

	length, err := decodeTlNum(lengthHead[0], lengthTail)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	total := make([]byte, 0, 1+1+len(typeTail)+1+len(lengthTail)+length)
	total = append(total, version...)
	total = append(total, typeHead...)
	total = append(total, typeTail...)
	total = append(total, lengthHead...)
	total = append(total, lengthTail...)
	total = append(total, payload...)
	return total, nil
}

// tlNumRestLen returns how many additional bytes follow a TLNum's first
// byte, given NDN/CCNx-style variable-length encoding (spec §6, shared with
// fw/codec).
func tlNumRestLen(first byte) (int, error) {
	switch {
	case first <= 0xfc:
		return 0, nil
	case first == 0xfd:
		return 2, nil
	case first == 0xfe:
		return 4, nil
	case first == 0xff:
		return 8, nil
	default:
		return 0, defn.NewError(defn.ErrFraming, "invalid TLNum prefix byte")
	}
}

func decodeTlNum(first byte, rest []byte) (int, error) {
	if first <= 0xfc {
		return int(first), nil
	}
	var v uint64
	for _, b := range rest {
		v = v<<8 | uint64(b)
	}
	if v > 1<<32 {
		return 0, defn.NewError(defn.ErrFraming, "packet length too large")
	}
	return int(v), nil
}
