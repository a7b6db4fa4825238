package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBefsFragmenterRoundTripUnderMtu(t *testing.T) {
	f := NewBefsFragmenter()
	wire := []byte("a small ccnx packet")

	frags := f.Fragment(wire, 8192)
	require.Len(t, frags, 1)
	require.Equal(t, append([]byte{0, 1}, wire...), frags[0])

	out, ok := f.Reassemble(frags[0])
	require.True(t, ok)
	require.Equal(t, wire, out)
}

func TestBefsFragmenterRoundTripOverMtu(t *testing.T) {
	f := NewBefsFragmenter()
	wire := bytes.Repeat([]byte{0xAB}, 100)

	frags := f.Fragment(wire, 32)
	require.Greater(t, len(frags), 1)

	var out []byte
	var ok bool
	for _, frag := range frags {
		out, ok = f.Reassemble(frag)
		if ok {
			break
		}
	}
	require.True(t, ok)
	require.Equal(t, wire, out)
}

func TestBefsFragmenterRestartsOnGap(t *testing.T) {
	f := NewBefsFragmenter()
	wire := bytes.Repeat([]byte{0x01}, 100)
	frags := f.Fragment(wire, 32)
	require.GreaterOrEqual(t, len(frags), 3)

	_, ok := f.Reassemble(frags[0])
	require.False(t, ok)

	// Skip straight to the last fragment: out of order, must restart.
	_, ok = f.Reassemble(frags[len(frags)-1])
	require.False(t, ok)

	// A fresh, in-order pass from the start still succeeds.
	var out []byte
	for _, frag := range frags {
		out, ok = f.Reassemble(frag)
		if ok {
			break
		}
	}
	require.True(t, ok)
	require.Equal(t, wire, out)
}

func TestBefsFragmenterRejectsShortFragment(t *testing.T) {
	f := NewBefsFragmenter()
	out, ok := f.Reassemble([]byte{0x00})
	require.False(t, ok)
	require.Nil(t, out)
}
