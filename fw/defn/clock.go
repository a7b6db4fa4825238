package defn

import "time"

// Clock abstracts time so PIT/Content-Store expiry logic can be driven
// deterministically in tests (spec §9 Design Notes, "Time source").
//
// NowMs is monotonic and used for lifetimes/timeouts; WallMs is wall-clock
// and used for absolute Content Object expiry/RCT comparisons.
type Clock interface {
	NowMs() int64
	WallMs() int64
}

// SystemClock is the production Clock backed by the real time source.
type SystemClock struct{}

// Returns the current wall-clock time in milliseconds since the Unix epoch.
// SystemClock reads the same source for NowMs and WallMs, so its NowMs is
// not monotonic: it follows any adjustment of the system clock.
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// Returns the current wall-clock time in milliseconds.
func (SystemClock) WallMs() int64 {
	return time.Now().UnixMilli()
}

// ManualClock is a Clock whose value is advanced explicitly, for unit tests.
type ManualClock struct {
	ms int64
}

// NewManualClock constructs a ManualClock starting at the given millisecond value.
func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{ms: startMs}
}

// Returns the current value of the manual clock.
func (c *ManualClock) NowMs() int64 {
	return c.ms
}

// Returns the current value of the manual clock (wall and monotonic share one value in tests).
func (c *ManualClock) WallMs() int64 {
	return c.ms
}

// Advance moves the manual clock forward by delta milliseconds.
func (c *ManualClock) Advance(deltaMs int64) {
	c.ms += deltaMs
}

// Set pins the manual clock to an absolute millisecond value.
func (c *ManualClock) Set(ms int64) {
	c.ms = ms
}
