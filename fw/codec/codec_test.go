package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parc-forge/athena/fw/codec"
	"github.com/parc-forge/athena/fw/defn"
)

func TestEncodeDecodeInterestRoundTrip(t *testing.T) {
	c := codec.NewCodec()
	name := defn.NameFromStr("ccnx:/parc/video")
	msg := &defn.Message{
		Kind: defn.KindInterest,
		Interest: &defn.Interest{
			NameV:      name,
			HasName:    true,
			LifetimeMs: 4000,
			HopLimit:   32,
			Payload:    []byte("hello"),
		},
	}

	wire, err := c.Encode(msg, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(wire), c.MinHeaderLength())

	length, err := c.PacketLength(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), length)

	decoded, err := c.Decode(wire)
	require.NoError(t, err)
	require.Equal(t, defn.KindInterest, decoded.Kind)
	require.True(t, decoded.Interest.NameV.Equal(name))
	require.EqualValues(t, 4000, decoded.Interest.LifetimeMs)
	require.EqualValues(t, 32, decoded.Interest.HopLimit)
	require.Equal(t, []byte("hello"), decoded.Interest.Payload)
}

func TestEncodeDecodeContentObjectRoundTrip(t *testing.T) {
	c := codec.NewCodec()
	name := defn.NameFromStr("ccnx:/parc/video/seg0")
	msg := &defn.Message{
		Kind: defn.KindContentObject,
		Content: &defn.ContentObject{
			NameV:     name,
			HasName:   true,
			HasExpiry: true,
			ExpiryMs:  123456,
			HasRct:    true,
			RctMs:     7000,
			Payload:   []byte("the-data"),
		},
	}

	wire, err := c.Encode(msg, nil)
	require.NoError(t, err)

	decoded, err := c.Decode(wire)
	require.NoError(t, err)
	require.Equal(t, defn.KindContentObject, decoded.Kind)
	require.True(t, decoded.Content.NameV.Equal(name))
	require.True(t, decoded.Content.HasExpiry)
	require.EqualValues(t, 123456, decoded.Content.ExpiryMs)
	require.EqualValues(t, 7000, decoded.Content.RctMs)
	require.NotEmpty(t, decoded.Content.ContentHash)
}

func TestEncodeDecodeInterestReturnRoundTrip(t *testing.T) {
	c := codec.NewCodec()
	name := defn.NameFromStr("ccnx:/unreachable")
	msg := &defn.Message{
		Kind: defn.KindInterestReturn,
		Return: &defn.InterestReturn{
			Reason: defn.ReturnNoRoute,
			Interest: &defn.Interest{
				NameV:      name,
				HasName:    true,
				LifetimeMs: 2000,
				HopLimit:   10,
			},
		},
	}

	wire, err := c.Encode(msg, nil)
	require.NoError(t, err)

	decoded, err := c.Decode(wire)
	require.NoError(t, err)
	require.Equal(t, defn.KindInterestReturn, decoded.Kind)
	require.Equal(t, defn.ReturnNoRoute, decoded.Return.Reason)
	require.True(t, decoded.Return.Interest.NameV.Equal(name))
}

func TestPacketLengthRejectsShortBuffer(t *testing.T) {
	c := codec.NewCodec()
	_, err := c.PacketLength([]byte{0, 1})
	require.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	c := codec.NewCodec()
	_, err := c.Decode([]byte{42, 1, 0})
	require.Error(t, err)
}

func TestDecodeRejectsEmptyBuffer(t *testing.T) {
	c := codec.NewCodec()
	_, err := c.Decode(nil)
	require.Error(t, err)
}

func TestHashIsDeterministicAndContentSensitive(t *testing.T) {
	c := codec.NewCodec()
	a := c.Hash([]byte("payload-a"))
	b := c.Hash([]byte("payload-a"))
	different := c.Hash([]byte("payload-b"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, different)
}

func TestGetSchemaVersion(t *testing.T) {
	c := codec.NewCodec()
	msg := &defn.Message{Kind: defn.KindInterest, Interest: &defn.Interest{}}
	require.Equal(t, codec.CurrentSchemaVersion, c.GetSchemaVersion(msg))
}
