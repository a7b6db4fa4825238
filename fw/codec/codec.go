// Package codec implements the external wire-codec contract spec.md §6
// assumes is available ("encode/decode library"): Encode, Decode,
// MinHeaderLength, PacketLength, Hash, GetSchemaVersion. Signing/validation
// stays out of scope (§1) — Encode accepts a nil signer and Decode never
// verifies a signature, only shape.
package codec

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/parc-forge/athena/fw/defn"
	enc "github.com/parc-forge/athena/std/encoding"
)

// CurrentSchemaVersion is the wire schema version this codec emits. Version 0
// decodes with a warning per §6 ("Version 0 messages are accepted with a
// warning"); this codec only ever emits CurrentSchemaVersion.
const CurrentSchemaVersion = 1

// Packet-level TLV types.
const (
	typeInterest       enc.TLNum = 1
	typeContentObject  enc.TLNum = 2
	typeInterestReturn enc.TLNum = 3
)

// Field-level TLV types, shared across packet kinds where it makes sense.
const (
	fieldName              enc.TLNum = 1
	fieldKeyId              enc.TLNum = 2
	fieldContentObjectHash  enc.TLNum = 3
	fieldLifetimeMs         enc.TLNum = 4
	fieldHopLimit           enc.TLNum = 5
	fieldPayload            enc.TLNum = 6
	fieldExpiryMs           enc.TLNum = 7
	fieldRctMs              enc.TLNum = 8
	fieldReturnReason       enc.TLNum = 9
	fieldEmbeddedInterest   enc.TLNum = 10
)

// Codec is the contract the forwarding core depends on; the production
// implementation lives in this package, but tests may substitute a fake.
type Codec interface {
	Encode(msg *defn.Message, signer any) ([]byte, error)
	Decode(buf []byte) (*defn.Message, error)
	MinHeaderLength() int
	PacketLength(buf []byte) (int, error)
	Hash(wire []byte) []byte
	GetSchemaVersion(msg *defn.Message) int
}

// TLV is the default Codec, a minimal CCNx-flavored TLV encoding built on
// the retained std/encoding varint/wire-view engine.
type TLV struct{}

// NewCodec returns the default wire codec.
func NewCodec() Codec {
	return TLV{}
}

// MinHeaderLength is the smallest number of leading bytes that must be
// available before PacketLength can be computed: 1 version byte + the
// smallest possible type and length TLNums.
func (TLV) MinHeaderLength() int {
	return 3
}

// PacketLength reads the version byte and outer TL header from buf and
// returns the total wire length (header + value) the packet will occupy,
// without requiring the full value to be present yet (§6 "extract
// packet_length from it, then read the remainder").
func (c TLV) PacketLength(buf []byte) (int, error) {
	if len(buf) < c.MinHeaderLength() {
		return 0, defn.NewError(defn.ErrFraming, "buffer shorter than minimum header length")
	}
	body := buf[1:]
	typ, tpos := enc.ParseTLNum(body)
	_ = typ
	if tpos >= len(body) {
		return 0, defn.NewError(defn.ErrFraming, "truncated header")
	}
	length, lpos := enc.ParseTLNum(body[tpos:])
	header := 1 + tpos + lpos
	total := header + int(length)
	if int(length) < 0 {
		return 0, defn.NewError(defn.ErrFraming, "negative packet length")
	}
	return total, nil
}

// Hash computes the content-addressable digest used for nameless Interests
// and ContentObjectHash restrictions (spec §3/§4.3). xxhash is not
// cryptographic, matching the fact that signing/validation is explicitly an
// external collaborator (§1) — this only needs to be collision-resistant
// enough to key a map.
func (TLV) Hash(wire []byte) []byte {
	sum := xxhash.Sum64(wire)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(sum >> (8 * i))
	}
	return out
}

// GetSchemaVersion returns CurrentSchemaVersion for every message; the
// version byte a decoded message arrived with is not kept on the Message.
func (TLV) GetSchemaVersion(msg *defn.Message) int {
	return CurrentSchemaVersion
}

// Encode serializes a Message into its wire form. signer is accepted only
// to satisfy the external contract's shape; Athena's core never signs.
func (c TLV) Encode(msg *defn.Message, signer any) ([]byte, error) {
	var typ enc.TLNum
	var value []byte

	switch msg.Kind {
	case defn.KindInterest:
		typ = typeInterest
		value = c.encodeInterest(msg.Interest)
	case defn.KindContentObject:
		typ = typeContentObject
		value = c.encodeContentObject(msg.Content)
	case defn.KindInterestReturn:
		typ = typeInterestReturn
		value = c.encodeInterestReturn(msg.Return)
	default:
		return nil, defn.NewError(defn.ErrInvalid, "unknown message kind %d", msg.Kind)
	}

	lenNum := enc.TLNum(len(value))
	out := make([]byte, 0, 1+typ.EncodingLength()+lenNum.EncodingLength()+len(value))
	out = append(out, byte(CurrentSchemaVersion))
	tbuf := make([]byte, typ.EncodingLength())
	typ.EncodeInto(tbuf)
	out = append(out, tbuf...)
	lbuf := make([]byte, lenNum.EncodingLength())
	lenNum.EncodeInto(lbuf)
	out = append(out, lbuf...)
	out = append(out, value...)
	return out, nil
}

func encodeField(out []byte, typ enc.TLNum, val []byte) []byte {
	tbuf := make([]byte, typ.EncodingLength())
	typ.EncodeInto(tbuf)
	out = append(out, tbuf...)
	lnum := enc.TLNum(len(val))
	lbuf := make([]byte, lnum.EncodingLength())
	lnum.EncodeInto(lbuf)
	out = append(out, lbuf...)
	return append(out, val...)
}

func encodeName(name defn.Name) []byte {
	var buf []byte
	for _, comp := range name {
		buf = encodeField(buf, comp.Type, comp.Val)
	}
	return buf
}

func encodeNat(v uint64) []byte {
	n := enc.Nat(v)
	return n.Bytes()
}

func (c TLV) encodeInterest(i *defn.Interest) []byte {
	var buf []byte
	if i.HasName {
		buf = encodeField(buf, fieldName, encodeName(i.NameV))
	}
	if len(i.KeyId) > 0 {
		buf = encodeField(buf, fieldKeyId, i.KeyId)
	}
	if len(i.ContentObjectHash) > 0 {
		buf = encodeField(buf, fieldContentObjectHash, i.ContentObjectHash)
	}
	buf = encodeField(buf, fieldLifetimeMs, encodeNat(uint64(i.LifetimeMs)))
	buf = encodeField(buf, fieldHopLimit, []byte{i.HopLimit})
	if len(i.Payload) > 0 {
		buf = encodeField(buf, fieldPayload, i.Payload)
	}
	return buf
}

func (c TLV) encodeContentObject(o *defn.ContentObject) []byte {
	var buf []byte
	if o.HasName {
		buf = encodeField(buf, fieldName, encodeName(o.NameV))
	}
	if len(o.KeyId) > 0 {
		buf = encodeField(buf, fieldKeyId, o.KeyId)
	}
	if o.HasExpiry {
		buf = encodeField(buf, fieldExpiryMs, encodeNat(uint64(o.ExpiryMs)))
	}
	if o.HasRct {
		buf = encodeField(buf, fieldRctMs, encodeNat(uint64(o.RctMs)))
	}
	if len(o.Payload) > 0 {
		buf = encodeField(buf, fieldPayload, o.Payload)
	}
	return buf
}

func (c TLV) encodeInterestReturn(r *defn.InterestReturn) []byte {
	var buf []byte
	buf = encodeField(buf, fieldReturnReason, []byte{byte(r.Reason)})
	if r.Interest != nil {
		buf = encodeField(buf, fieldEmbeddedInterest, c.encodeInterest(r.Interest))
	}
	return buf
}

// Decode parses a wire buffer into a Message. A version byte of 0 decodes
// successfully; the codec itself logs nothing, and the §6 warning is logged
// by the caller that holds the logger (Athena.Run).
func (c TLV) Decode(buf []byte) (*defn.Message, error) {
	if len(buf) < 1 {
		return nil, defn.NewError(defn.ErrFraming, "empty buffer")
	}
	version := buf[0]
	if version > CurrentSchemaVersion {
		return nil, defn.NewError(defn.ErrFraming, "unsupported schema version %d", version)
	}
	body := buf[1:]
	view := enc.NewBufferView(body)
	typ, err := view.ReadTLNum()
	if err != nil {
		return nil, defn.WrapError(defn.ErrFraming, err, "reading packet type")
	}
	length, err := view.ReadTLNum()
	if err != nil {
		return nil, defn.WrapError(defn.ErrFraming, err, "reading packet length")
	}
	value, err := view.ReadBuf(int(length))
	if err != nil {
		return nil, defn.WrapError(defn.ErrFraming, err, "reading packet value")
	}

	switch typ {
	case typeInterest:
		i, err := decodeInterest(value)
		if err != nil {
			return nil, err
		}
		i.Wire = buf
		return &defn.Message{Kind: defn.KindInterest, Interest: i}, nil
	case typeContentObject:
		o, err := decodeContentObject(value)
		if err != nil {
			return nil, err
		}
		o.Wire = buf
		o.ContentHash = TLV{}.Hash(buf)
		return &defn.Message{Kind: defn.KindContentObject, Content: o}, nil
	case typeInterestReturn:
		r, err := decodeInterestReturn(value)
		if err != nil {
			return nil, err
		}
		r.Wire = buf
		return &defn.Message{Kind: defn.KindInterestReturn, Return: r}, nil
	default:
		return nil, defn.NewError(defn.ErrFraming, "unknown packet type %d", typ)
	}
}

func decodeFields(value []byte) (map[enc.TLNum][]byte, error) {
	fields := map[enc.TLNum][]byte{}
	view := enc.NewBufferView(value)
	for !view.IsEOF() {
		typ, err := view.ReadTLNum()
		if err != nil {
			return nil, defn.WrapError(defn.ErrFraming, err, "reading field type")
		}
		length, err := view.ReadTLNum()
		if err != nil {
			return nil, defn.WrapError(defn.ErrFraming, err, "reading field length")
		}
		val, err := view.ReadBuf(int(length))
		if err != nil {
			return nil, defn.WrapError(defn.ErrFraming, err, "reading field value")
		}
		fields[typ] = append([]byte{}, val...)
	}
	return fields, nil
}

func decodeName(raw []byte) (defn.Name, error) {
	view := enc.NewBufferView(raw)
	var name defn.Name
	for !view.IsEOF() {
		typ, err := view.ReadTLNum()
		if err != nil {
			return nil, err
		}
		length, err := view.ReadTLNum()
		if err != nil {
			return nil, err
		}
		val, err := view.ReadBuf(int(length))
		if err != nil {
			return nil, err
		}
		name = append(name, defn.Component{Type: typ, Val: append([]byte{}, val...)})
	}
	return name, nil
}

func decodeNat(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	v, _, err := enc.ParseNat(buf)
	if err != nil {
		return 0
	}
	return uint64(v)
}

func decodeInterest(value []byte) (*defn.Interest, error) {
	fields, err := decodeFields(value)
	if err != nil {
		return nil, err
	}
	i := &defn.Interest{}
	if raw, ok := fields[fieldName]; ok {
		name, err := decodeName(raw)
		if err != nil {
			return nil, defn.WrapError(defn.ErrFraming, err, "decoding interest name")
		}
		i.NameV = name
		i.HasName = true
	}
	i.KeyId = fields[fieldKeyId]
	i.ContentObjectHash = fields[fieldContentObjectHash]
	i.LifetimeMs = int64(decodeNat(fields[fieldLifetimeMs]))
	if hl, ok := fields[fieldHopLimit]; ok && len(hl) == 1 {
		i.HopLimit = hl[0]
	}
	i.Payload = fields[fieldPayload]
	return i, nil
}

func decodeContentObject(value []byte) (*defn.ContentObject, error) {
	fields, err := decodeFields(value)
	if err != nil {
		return nil, err
	}
	o := &defn.ContentObject{}
	if raw, ok := fields[fieldName]; ok {
		name, err := decodeName(raw)
		if err != nil {
			return nil, defn.WrapError(defn.ErrFraming, err, "decoding content object name")
		}
		o.NameV = name
		o.HasName = true
	}
	o.KeyId = fields[fieldKeyId]
	if raw, ok := fields[fieldExpiryMs]; ok {
		o.ExpiryMs = int64(decodeNat(raw))
		o.HasExpiry = true
	}
	if raw, ok := fields[fieldRctMs]; ok {
		o.RctMs = int64(decodeNat(raw))
		o.HasRct = true
	}
	o.Payload = fields[fieldPayload]
	return o, nil
}

func decodeInterestReturn(value []byte) (*defn.InterestReturn, error) {
	fields, err := decodeFields(value)
	if err != nil {
		return nil, err
	}
	r := &defn.InterestReturn{}
	if reason, ok := fields[fieldReturnReason]; ok && len(reason) == 1 {
		r.Reason = defn.ReturnReason(reason[0])
	}
	if raw, ok := fields[fieldEmbeddedInterest]; ok {
		inner, err := decodeInterest(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding embedded interest: %w", err)
		}
		r.Interest = inner
	}
	return r, nil
}
