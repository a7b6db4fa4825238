package athena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parc-forge/athena/fw/config"
	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/utils/testutils"
)

func newTestAthena(t *testing.T, listen ...string) *Athena {
	t.Helper()
	testutils.SetT(t)
	cfg := config.DefaultConfig()
	cfg.Tables.PitCapacity = 16
	cfg.Tables.ContentStoreCapacityMB = 1
	cfg.Listen = listen
	return testutils.NoErr(Create(t.Name(), cfg))
}

func TestCreateOpensConfiguredListeners(t *testing.T) {
	a := newTestAthena(t, "null://a/name=peer-a", "null://b/name=peer-b")

	_, ok := a.Adapter.LinkNameToId("peer-a")
	require.True(t, ok)
	_, ok = a.Adapter.LinkNameToId("peer-b")
	require.True(t, ok)

	require.Equal(t, StateRunning, a.Control.State())
}

func TestCreateRejectsBadListener(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = []string{"bogus://nowhere"}
	_, err := Create("bad", cfg)
	require.Error(t, err)
}

func TestAthenaProcessesInterestThroughFullStack(t *testing.T) {
	a := newTestAthena(t, "null://a/name=peer-a")

	co := &defn.ContentObject{
		NameV:   defn.NameFromStr("ccnx:/hello/world"),
		HasName: true,
		Payload: []byte("hi"),
	}
	require.True(t, a.Cs.Put(co))

	interest := &defn.Interest{
		NameV:      defn.NameFromStr("ccnx:/hello/world"),
		HasName:    true,
		LifetimeMs: 1000,
		HopLimit:   32,
	}
	wire, err := a.Dispatcher.Codec.Encode(&defn.Message{Kind: defn.KindInterest, Interest: interest}, nil)
	require.NoError(t, err)

	nm, ok := a.Adapter.LookupNullModule("peer-a")
	require.True(t, ok)
	nm.Deliver(wire)

	received, err := a.Adapter.Receive(time.Second)
	require.NoError(t, err)

	msg, err := a.Dispatcher.Codec.Decode(received.Wire)
	require.NoError(t, err)
	a.Dispatcher.ProcessMessage(msg, received.Ingress)

	out := nm.Outbox()
	require.Len(t, out, 1)

	outMsg, err := a.Dispatcher.Codec.Decode(out[0])
	require.NoError(t, err)
	require.Equal(t, defn.KindContentObject, outMsg.Kind)
	require.Equal(t, []byte("hi"), outMsg.Content.Payload)
}

func TestAthenaSpawnCreatesIndependentInstance(t *testing.T) {
	a := newTestAthena(t)

	err := a.spawn("null://child/name=child-listener")
	require.NoError(t, err)

	require.Len(t, a.instances, 1)
	child := a.instances[0]
	require.NotSame(t, a.Fib, child.Fib)
	require.NotSame(t, a.Pit, child.Pit)
	require.NotSame(t, a.Cs, child.Cs)

	_, ok := child.Adapter.LinkNameToId("child-listener")
	require.True(t, ok)

	child.Stop()
	require.Equal(t, StateExit, child.Control.State())
}

func TestAthenaStopCascadesToSpawnedChildren(t *testing.T) {
	a := newTestAthena(t)
	require.NoError(t, a.spawn("null://child/name=child-listener"))

	a.Stop()

	require.Equal(t, StateExit, a.Control.State())
	require.Equal(t, StateExit, a.instances[0].Control.State())
}

func TestAthenaRunExitsOnStop(t *testing.T) {
	a := newTestAthena(t, "null://a/name=peer-a")

	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	a.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

func TestAthenaRunIsIdempotentWhileRunning(t *testing.T) {
	a := newTestAthena(t, "null://a/name=peer-a")

	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	// A second concurrent call must return immediately rather than
	// starting a duplicate loop (running flag guards re-entry).
	a.Run()

	a.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}
