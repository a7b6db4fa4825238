package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parc-forge/athena/fw/codec"
	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/fw/link"
	"github.com/parc-forge/athena/fw/table"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *link.Adapter, defn.Clock) {
	t.Helper()
	clock := defn.NewManualClock(1000)
	fib := table.NewFib()
	pit := table.NewPit(16, clock)
	cs := table.NewContentStore(1<<20, clock)
	adapter := link.NewAdapter(func(id defn.LinkId) { pit.RemoveLink(defn.LinkVectorOf(id)); fib.RemoveLink(defn.LinkVectorOf(id)) })
	d := New("test-dispatcher", fib, pit, cs, adapter, codec.NewCodec(), clock)
	return d, adapter, clock
}

func openNull(t *testing.T, a *link.Adapter, name string, local bool) (string, defn.LinkId) {
	t.Helper()
	uri := "null://" + name + "/name=" + name
	if local {
		uri += "/local=true"
	}
	got, err := a.Open(uri)
	require.NoError(t, err)
	id, ok := a.LinkNameToId(got)
	require.True(t, ok)
	return got, id
}

func TestDispatcherContentStoreHitRespondsDirectly(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	name, idA := openNull(t, adapter, "a", true)

	content := &defn.ContentObject{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, Payload: []byte("hello")}
	require.True(t, d.Cs.Put(content))

	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	mod, ok := adapter.LookupNullModule(name)
	require.True(t, ok)
	require.Len(t, mod.Outbox(), 1)
}

func TestDispatcherForwardsOnFibAndRecordsEgress(t *testing.T) {
	d, adapter, clock := newTestDispatcher(t)
	_, idA := openNull(t, adapter, "a", true)
	nameB, idB := openNull(t, adapter, "b", false)

	d.Fib.AddRoute(defn.NameFromStr("ccnx:/x/y"), defn.LinkVectorOf(idB))

	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	modB, ok := adapter.LookupNullModule(nameB)
	require.True(t, ok)
	require.Len(t, modB.Outbox(), 1)
	require.Equal(t, 1, d.Pit.Size())

	// A duplicate on the same ingress returns the live entry's egress vector.
	_, egress := d.Pit.AddInterest(interest, defn.LinkVectorOf(idA), clock.WallMs())
	require.True(t, egress.IsSet(idB))
}

func TestDispatcherContentObjectSatisfiesPitAndFillsCache(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	nameA, idA := openNull(t, adapter, "a", true)
	_, idB := openNull(t, adapter, "b", false)

	d.Fib.AddRoute(defn.NameFromStr("ccnx:/x/y"), defn.LinkVectorOf(idB))
	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))
	require.Equal(t, 1, d.Pit.Size())

	content := &defn.ContentObject{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, Payload: []byte("hi")}
	d.ProcessMessage(&defn.Message{Kind: defn.KindContentObject, Content: content}, defn.LinkVectorOf(idB))

	require.Equal(t, 0, d.Pit.Size())
	modA, ok := adapter.LookupNullModule(nameA)
	require.True(t, ok)
	require.Len(t, modA.Outbox(), 1)

	match, ok := d.Cs.GetMatch(&defn.Interest{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true})
	require.True(t, ok)
	require.Equal(t, content.Payload, match.Payload)
}

func TestDispatcherNoRouteSendsInterestReturnOnLocalLink(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	name, idA := openNull(t, adapter, "a", true)

	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/no/route"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	mod, ok := adapter.LookupNullModule(name)
	require.True(t, ok)
	outbox := mod.Outbox()
	require.Len(t, outbox, 1)

	msg, err := d.Codec.Decode(outbox[0])
	require.NoError(t, err)
	require.Equal(t, defn.KindInterestReturn, msg.Kind)
	require.Equal(t, defn.ReturnNoRoute, msg.Return.Reason)
}

func TestDispatcherNoRouteSuppressedOnNonLocalLink(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	name, idA := openNull(t, adapter, "a", false)

	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/no/route"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	mod, ok := adapter.LookupNullModule(name)
	require.True(t, ok)
	require.Empty(t, mod.Outbox())
}

func TestDispatcherInterestReturnRemovesPitEntry(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	_, idA := openNull(t, adapter, "a", true)
	_, idB := openNull(t, adapter, "b", false)

	d.Fib.AddRoute(defn.NameFromStr("ccnx:/x/y"), defn.LinkVectorOf(idB))
	interest := &defn.Interest{NameV: defn.NameFromStr("ccnx:/x/y"), HasName: true, LifetimeMs: 2000, HopLimit: 5}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))
	require.Equal(t, 1, d.Pit.Size())

	ret := &defn.InterestReturn{Reason: defn.ReturnNoRoute, Interest: interest}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterestReturn, Return: ret}, defn.LinkVectorOf(idB))

	require.Equal(t, 0, d.Pit.Size())
}

type fakeControl struct {
	resp *defn.ContentObject
	ok   bool
	got  *defn.Interest
}

func (f *fakeControl) Dispatch(interest *defn.Interest, ingress defn.LinkVector) (*defn.ContentObject, bool) {
	f.got = interest
	return f.resp, f.ok
}

func TestDispatcherRoutesControlInterestAndLoopsBackResponse(t *testing.T) {
	d, adapter, clock := newTestDispatcher(t)
	name, idA := openNull(t, adapter, "a", true)

	reqName := defn.NameFromStr("ccnx:/local/forwarder/control/stats")
	resp := &defn.ContentObject{
		NameV: reqName, HasName: true,
		HasExpiry: true, ExpiryMs: clock.WallMs() + 100,
		Payload: []byte(`{"interests":0}`),
	}
	fc := &fakeControl{resp: resp, ok: true}
	d.SetControlHandler(fc)

	interest := &defn.Interest{NameV: reqName, HasName: true, LifetimeMs: 2000, HopLimit: 1}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	require.Same(t, interest, fc.got)

	mod, ok := adapter.LookupNullModule(name)
	require.True(t, ok)
	outbox := mod.Outbox()
	require.Len(t, outbox, 1)

	msg, err := d.Codec.Decode(outbox[0])
	require.NoError(t, err)
	require.Equal(t, defn.KindContentObject, msg.Kind)
	require.Equal(t, resp.Payload, msg.Content.Payload)
}

func TestDispatcherControlInterestWithNoResponseSendsNothing(t *testing.T) {
	d, adapter, _ := newTestDispatcher(t)
	name, idA := openNull(t, adapter, "a", true)

	fc := &fakeControl{ok: false}
	d.SetControlHandler(fc)

	reqName := defn.NameFromStr("ccnx:/local/forwarder/control/quit")
	interest := &defn.Interest{NameV: reqName, HasName: true, LifetimeMs: 2000, HopLimit: 1}
	d.ProcessMessage(&defn.Message{Kind: defn.KindInterest, Interest: interest}, defn.LinkVectorOf(idA))

	mod, ok := adapter.LookupNullModule(name)
	require.True(t, ok)
	require.Empty(t, mod.Outbox())
}
