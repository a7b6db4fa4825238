package defn

import (
	"strings"

	enc "github.com/parc-forge/athena/std/encoding"
)

// Component is one typed, opaque segment of a Name (spec §3: "each segment
// has a type tag and an opaque byte string").
type Component struct {
	Type enc.TLNum
	Val  []byte
}

// TypeGeneric is the default component type used by NameFromStr.
const TypeGeneric enc.TLNum = 0x08

// Equal reports whether two components have the same type and value.
func (c Component) Equal(other Component) bool {
	return c.Type == other.Type && string(c.Val) == string(other.Val)
}

// String renders the component using type=value notation unless it's generic.
func (c Component) String() string {
	if c.Type == TypeGeneric {
		return string(c.Val)
	}
	return strings.Join([]string{itoa(uint64(c.Type)), string(c.Val)}, "=")
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Name is an ordered sequence of typed segments (spec §3). Names are
// immutable once constructed: every operation returns a new Name.
type Name []Component

// NewName constructs a Name from components.
func NewName(comps ...Component) Name {
	out := make(Name, len(comps))
	copy(out, comps)
	return out
}

// NameFromStr parses a "ccnx:/a/b/c" (or "/a/b/c") style string into a Name
// of generic components. Empty segments (leading/trailing/doubled slashes)
// are dropped.
func NameFromStr(s string) Name {
	s = strings.TrimPrefix(s, "ccnx:")
	parts := strings.Split(s, "/")
	var out Name
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, Component{Type: TypeGeneric, Val: []byte(p)})
	}
	return out
}

// Equal reports whether two names have identical segments in the same order.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if !n[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// IsPrefix reports whether n is a prefix of other in segment order (spec §3:
// "A name starts with another if the other is a prefix in segment order").
func (n Name) IsPrefix(other Name) bool {
	if len(n) > len(other) {
		return false
	}
	for i := range n {
		if !n[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Append returns a new Name with the given components added at the end.
func (n Name) Append(comps ...Component) Name {
	out := make(Name, len(n), len(n)+len(comps))
	copy(out, n)
	return append(out, comps...)
}

// String renders the name as a ccnx:/a/b/c URI.
func (n Name) String() string {
	var sb strings.Builder
	sb.WriteString("ccnx:")
	for _, c := range n {
		sb.WriteByte('/')
		sb.WriteString(c.String())
	}
	if len(n) == 0 {
		sb.WriteByte('/')
	}
	return sb.String()
}

// Key returns a byte-comparable encoding of the name, used as a map key
// (indices never need the name to round-trip, only to compare equal).
func (n Name) Key() string {
	var sb strings.Builder
	for _, c := range n {
		sb.WriteByte(0)
		sb.WriteString(itoa(uint64(c.Type)))
		sb.WriteByte(':')
		sb.Write(c.Val)
	}
	return sb.String()
}
