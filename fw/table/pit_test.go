package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/fw/table"
)

func newInterest(name defn.Name, lifetimeMs int64) *defn.Interest {
	return &defn.Interest{NameV: name, HasName: true, LifetimeMs: lifetimeMs, HopLimit: 32}
}

func TestPitAddInterestForwardThenAggregate(t *testing.T) {
	clock := defn.NewManualClock(1000)
	pit := table.NewPit(16, clock)
	name := defn.NameFromStr("ccnx:/video")

	res, egress := pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(1), clock.NowMs())
	require.Equal(t, table.Forward, res)
	require.NotNil(t, egress)

	res, egress2 := pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(2), clock.NowMs())
	require.Equal(t, table.Aggregated, res)
	require.Same(t, egress, egress2)
}

func TestPitDuplicateOnSameLinkExtendsExpiration(t *testing.T) {
	clock := defn.NewManualClock(1000)
	pit := table.NewPit(16, clock)
	name := defn.NameFromStr("ccnx:/video")

	res, _ := pit.AddInterest(newInterest(name, 1000), defn.LinkVectorOf(1), clock.NowMs())
	require.Equal(t, table.Forward, res)

	clock.Advance(500)
	res, _ = pit.AddInterest(newInterest(name, 5000), defn.LinkVectorOf(1), clock.NowMs())
	require.Equal(t, table.Forward, res)

	clock.Advance(1000) // total elapsed 1500ms; original 1000ms lifetime would have expired
	pit.PurgeExpired(clock.NowMs())
	require.Equal(t, 1, pit.Size())
}

func TestPitMatchUnionsIngressAndRemoves(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(16, clock)
	name := defn.NameFromStr("ccnx:/video")

	pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(1), clock.NowMs())
	pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(2), clock.NowMs())

	reverse := pit.Match(name, nil, nil)
	require.True(t, reverse.Equals(defn.LinkVectorOf(1, 2)))
	require.Equal(t, 0, pit.Size())
}

func TestPitRemoveInterestClearsBitsAndEmptyEntry(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(16, clock)
	name := defn.NameFromStr("ccnx:/video")

	pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(1, 2), clock.NowMs())

	ok := pit.RemoveInterest(newInterest(name, 4000), defn.LinkVectorOf(1))
	require.True(t, ok)
	require.Equal(t, 1, pit.Size())

	ok = pit.RemoveInterest(newInterest(name, 4000), defn.LinkVectorOf(2))
	require.True(t, ok)
	require.Equal(t, 0, pit.Size())

	ok = pit.RemoveInterest(newInterest(name, 4000), defn.LinkVectorOf(2))
	require.False(t, ok)
}

func TestPitRemoveLinkPurgesTouchedEntries(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(16, clock)
	name1 := defn.NameFromStr("ccnx:/a")
	name2 := defn.NameFromStr("ccnx:/b")

	pit.AddInterest(newInterest(name1, 4000), defn.LinkVectorOf(1), clock.NowMs())
	pit.AddInterest(newInterest(name2, 4000), defn.LinkVectorOf(1, 2), clock.NowMs())

	pit.RemoveLink(defn.LinkVectorOf(1))
	require.Equal(t, 1, pit.Size())

	reverse := pit.Match(name2, nil, nil)
	require.True(t, reverse.Equals(defn.LinkVectorOf(2)))
}

func TestPitNamelessInterestMatchByHash(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(16, clock)
	hash := []byte{1, 2, 3, 4}

	i := &defn.Interest{LifetimeMs: 4000, HopLimit: 32, ContentObjectHash: hash}
	res, _ := pit.AddInterest(i, defn.LinkVectorOf(3), clock.NowMs())
	require.Equal(t, table.Forward, res)

	reverse := pit.Match(defn.Name{}, nil, hash)
	require.True(t, reverse.Equals(defn.LinkVectorOf(3)))
}

func TestPitCapacityReturnsError(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(1, clock)

	res, _ := pit.AddInterest(newInterest(defn.NameFromStr("ccnx:/a"), 4000), defn.LinkVectorOf(1), clock.NowMs())
	require.Equal(t, table.Forward, res)

	res, _ = pit.AddInterest(newInterest(defn.NameFromStr("ccnx:/b"), 4000), defn.LinkVectorOf(1), clock.NowMs())
	require.Equal(t, table.Error, res)
}

func TestPitMeanEntryLifetimeRecordedOnMatch(t *testing.T) {
	clock := defn.NewManualClock(0)
	pit := table.NewPit(16, clock)
	name := defn.NameFromStr("ccnx:/video")

	pit.AddInterest(newInterest(name, 4000), defn.LinkVectorOf(1), clock.NowMs())
	clock.Advance(250)
	pit.Match(name, nil, nil)

	require.InDelta(t, 250, pit.MeanEntryLifetime(), 0.001)
}
