package table

import (
	"sync"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/types/priority_queue"
)

// Resolution is the outcome of Pit.AddInterest (spec §4.3).
type Resolution int

const (
	// Forward means the caller should look up the FIB and forward.
	Forward Resolution = iota
	// Aggregated means an existing entry absorbed this interest; the
	// caller does nothing further.
	Aggregated
	// Error means the table is at capacity and could not accept the entry.
	Error
)

const lifetimeWindowSize = 100

type pitEntry struct {
	key           string
	namelessKey   string
	hasNameless   bool
	interest      *defn.Interest
	ingress       defn.LinkVector
	egress        defn.LinkVector
	expiration    int64
	creation      int64
	heapItem      *priority_queue.Item[*pitEntry, int64]
}

// Pit is the Pending Interest Table (spec §4.3).
type Pit struct {
	mu         sync.Mutex
	capacity   int
	clock      defn.Clock
	entries    map[string]*pitEntry
	expireHeap priority_queue.Queue[*pitEntry, int64]
	linkIndex  map[defn.LinkId]map[string]*pitEntry

	lifetimeSamples [lifetimeWindowSize]int64
	lifetimeCount   int
	lifetimeNext    int
	lifetimeSum     int64

	pendingCount int
}

// NewPit constructs an empty PIT with the given maximum entry count.
func NewPit(capacity int, clock defn.Clock) *Pit {
	return &Pit{
		capacity:   capacity,
		clock:      clock,
		entries:    make(map[string]*pitEntry),
		expireHeap: priority_queue.New[*pitEntry, int64](),
		linkIndex:  make(map[defn.LinkId]map[string]*pitEntry),
	}
}

func keyOf(i *defn.Interest) string {
	switch {
	case len(i.ContentObjectHash) > 0:
		return combineKey(i.NameV, i.ContentObjectHash)
	case len(i.KeyId) > 0:
		return combineKey(i.NameV, i.KeyId)
	default:
		return i.NameV.Key()
	}
}

func combineKey(name defn.Name, suffix []byte) string {
	return name.Key() + "\x01" + string(suffix)
}

func namelessKeyOf(hash []byte) string {
	return combineKey(defn.Name{}, hash)
}

// AddInterest implements spec §4.3's add_interest. The returned egress
// pointer aliases the live entry's LinkVector; the caller sets bits in it
// for every link actually forwarded to before releasing the reference.
func (p *Pit) AddInterest(interest *defn.Interest, ingress defn.LinkVector, now int64) (Resolution, *defn.LinkVector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) >= p.capacity {
		p.purgeExpiredLocked(now)
	}

	exp := now + interest.LifetimeMs
	key := keyOf(interest)

	if e, ok := p.entries[key]; ok {
		if ingress.Difference(e.ingress).IsEmpty() {
			if exp > e.expiration {
				e.expiration = exp
				p.expireHeap.UpdatePriority(e.heapItem, exp)
			}
			return Forward, &e.egress
		}
		e.ingress = e.ingress.Union(ingress)
		if exp > e.expiration {
			e.expiration = exp
			p.expireHeap.UpdatePriority(e.heapItem, exp)
		}
		p.indexLinks(e, ingress)
		p.pendingCount++
		return Aggregated, &e.egress
	}

	if len(p.entries) >= p.capacity {
		return Error, nil
	}

	e := &pitEntry{
		key:        key,
		interest:   interest,
		ingress:    ingress.Clone(),
		egress:     defn.NewLinkVector(),
		expiration: exp,
		creation:   now,
	}
	e.heapItem = p.expireHeap.Push(e, exp)
	p.entries[key] = e
	p.indexLinks(e, e.ingress)

	if len(interest.ContentObjectHash) > 0 {
		e.namelessKey = namelessKeyOf(interest.ContentObjectHash)
		e.hasNameless = true
		p.entries[e.namelessKey] = e
	}

	return Forward, &e.egress
}

func (p *Pit) indexLinks(e *pitEntry, ids defn.LinkVector) {
	for _, id := range ids.Ids() {
		m, ok := p.linkIndex[id]
		if !ok {
			m = make(map[string]*pitEntry)
			p.linkIndex[id] = m
		}
		m[e.key] = e
	}
}

func (p *Pit) unindexAllLinks(e *pitEntry) {
	for _, id := range e.ingress.Ids() {
		if m, ok := p.linkIndex[id]; ok {
			delete(m, e.key)
			if len(m) == 0 {
				delete(p.linkIndex, id)
			}
		}
	}
}

func (p *Pit) removeEntryLocked(e *pitEntry) {
	p.unindexAllLinks(e)
	delete(p.entries, e.key)
	if e.hasNameless {
		delete(p.entries, e.namelessKey)
	}
	p.expireHeap.Remove(e.heapItem)
}

// RemoveInterest implements spec §4.3's remove_interest, used when an
// InterestReturn arrives. Returns whether any bits were cleared.
func (p *Pit) RemoveInterest(interest *defn.Interest, ingress defn.LinkVector) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[keyOf(interest)]
	if !ok {
		return false
	}
	before := e.ingress
	e.ingress = e.ingress.Difference(ingress)
	if before.Equals(e.ingress) {
		return false
	}
	for _, id := range ingress.Ids() {
		if m, ok := p.linkIndex[id]; ok {
			delete(m, e.key)
		}
	}
	if e.ingress.IsEmpty() {
		p.removeEntryLocked(e)
	}
	return true
}

// Match implements spec §4.3's match: tries name, (name,keyId), (name,hash),
// and (∅,hash) in turn, unions every hit's ingress into the result, records
// a lifetime sample, and removes every hit.
func (p *Pit) Match(name defn.Name, keyId []byte, contentHash []byte) defn.LinkVector {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := defn.NewLinkVector()
	now := p.clock.NowMs()

	seen := map[*pitEntry]bool{}
	tryKey := func(key string) {
		e, ok := p.entries[key]
		if !ok || seen[e] {
			return
		}
		seen[e] = true
		p.recordLifetime(now - e.creation)
		result = result.Union(e.ingress)
		p.removeEntryLocked(e)
	}

	tryKey(name.Key())
	if len(keyId) > 0 {
		tryKey(combineKey(name, keyId))
	}
	if len(contentHash) > 0 {
		tryKey(combineKey(name, contentHash))
		tryKey(namelessKeyOf(contentHash))
	}

	return result
}

// RemoveLink implements spec §4.3's remove_link using the per-link
// secondary index, completing before the adapter's remove_link callback
// returns so no later match can reference the dead LinkId.
func (p *Pit) RemoveLink(linkVector defn.LinkVector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	touched := map[*pitEntry]bool{}
	for _, id := range linkVector.Ids() {
		m, ok := p.linkIndex[id]
		if !ok {
			continue
		}
		for _, e := range m {
			touched[e] = true
		}
	}
	for e := range touched {
		p.unindexAllLinks(e)
		e.ingress = e.ingress.Difference(linkVector)
		if e.ingress.IsEmpty() {
			p.removeEntryLocked(e)
		} else {
			p.indexLinks(e, e.ingress)
		}
	}
}

// PurgeExpired removes every entry whose expiration has passed, stopping at
// the first unexpired entry in the ascending expiration-ordered heap (spec
// §4.3). Each candidate is re-checked since extension can postdate its
// original heap position.
func (p *Pit) PurgeExpired(now int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeExpiredLocked(now)
}

func (p *Pit) purgeExpiredLocked(now int64) {
	for p.expireHeap.Len() > 0 {
		if p.expireHeap.PeekPriority() > now {
			return
		}
		e := p.expireHeap.Pop()
		if e.expiration > now {
			// Extended since last touched; reinsert at its current
			// expiration and keep scanning, the loop ending once the
			// heap's minimum lies in the future.
			e.heapItem = p.expireHeap.Push(e, e.expiration)
			continue
		}
		p.unindexAllLinks(e)
		delete(p.entries, e.key)
		if e.hasNameless {
			delete(p.entries, e.namelessKey)
		}
	}
}

func (p *Pit) recordLifetime(sample int64) {
	if p.lifetimeCount < lifetimeWindowSize {
		p.lifetimeSamples[p.lifetimeCount] = sample
		p.lifetimeCount++
	} else {
		p.lifetimeSum -= p.lifetimeSamples[p.lifetimeNext]
		p.lifetimeSamples[p.lifetimeNext] = sample
		p.lifetimeNext = (p.lifetimeNext + 1) % lifetimeWindowSize
	}
	p.lifetimeSum += sample
}

// Size returns the number of distinct logical entries (nameless duplicates
// of the same entry count once).
func (p *Pit) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := map[*pitEntry]bool{}
	for _, e := range p.entries {
		seen[e] = true
	}
	return len(seen)
}

// MeanEntryLifetime returns the rolling mean of recorded match-time lifetime
// samples (window size 100, spec §4.3's Statistics).
func (p *Pit) MeanEntryLifetime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifetimeCount == 0 {
		return 0
	}
	return float64(p.lifetimeSum) / float64(p.lifetimeCount)
}
