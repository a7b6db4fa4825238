package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parc-forge/athena/fw/defn"
)

func TestAdapterOpenAssignsLinkIdAndCloseReleasesIt(t *testing.T) {
	var removed []defn.LinkId
	a := NewAdapter(func(id defn.LinkId) { removed = append(removed, id) })

	name, err := a.Open("null://peer-a")
	require.NoError(t, err)
	require.Equal(t, "null://peer-a", name)

	id, ok := a.LinkNameToId(name)
	require.True(t, ok)
	require.Equal(t, defn.LinkId(0), id)

	closed := a.Close(defn.LinkVectorOf(id))
	require.True(t, closed.IsSet(id))
	require.Equal(t, []defn.LinkId{id}, removed)

	_, ok = a.LinkNameToId(name)
	require.False(t, ok)
}

func TestAdapterOpenRejectsDuplicateName(t *testing.T) {
	a := NewAdapter(nil)

	_, err := a.Open("null://dup/name=x")
	require.NoError(t, err)

	_, err = a.Open("null://dup2/name=x")
	require.Error(t, err)
}

func TestAdapterReusesLowestFreeLinkId(t *testing.T) {
	a := NewAdapter(nil)

	nameA, err := a.Open("null://a")
	require.NoError(t, err)
	_, err = a.Open("null://b")
	require.NoError(t, err)

	idA, _ := a.LinkNameToId(nameA)
	require.NoError(t, a.CloseByName(nameA))

	nameC, err := a.Open("null://c")
	require.NoError(t, err)
	idC, _ := a.LinkNameToId(nameC)
	require.Equal(t, idA, idC)
}

func TestAdapterSendDropsInterestAtZeroHopLimitOnNonLocalLink(t *testing.T) {
	a := NewAdapter(nil)
	name, err := a.Open("null://remote")
	require.NoError(t, err)
	id, _ := a.LinkNameToId(name)

	result := a.Send([]byte("wire"), true, 0, defn.LinkVectorOf(id))
	require.True(t, result.IsEmpty())

	result = a.Send([]byte("wire"), true, 1, defn.LinkVectorOf(id))
	require.True(t, result.IsSet(id))
}

func TestAdapterReceiveRoundRobinsAndTimesOut(t *testing.T) {
	a := NewAdapter(nil)
	nameA, err := a.Open("null://a")
	require.NoError(t, err)
	nameB, err := a.Open("null://b")
	require.NoError(t, err)
	idA, _ := a.LinkNameToId(nameA)
	idB, _ := a.LinkNameToId(nameB)

	modA := moduleFor(t, a, nameA)
	modB := moduleFor(t, a, nameB)

	modB.Deliver([]byte("from-b"))
	modA.Deliver([]byte("from-a"))

	r, err := a.Receive(10 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, r.Ingress.IsSet(idA) || r.Ingress.IsSet(idB))

	r2, err := a.Receive(10 * time.Millisecond)
	require.NoError(t, err)
	require.NotEqual(t, r.Wire, r2.Wire)

	_, err = a.Receive(5 * time.Millisecond)
	require.Error(t, err)
	kind, ok := defn.KindOf(err)
	require.True(t, ok)
	require.Equal(t, defn.ErrWouldBlock, kind)
}

func moduleFor(t *testing.T, a *Adapter, name string) *nullModule {
	t.Helper()
	m, ok := a.LookupNullModule(name)
	require.True(t, ok)
	return m
}
