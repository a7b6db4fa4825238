package table

import (
	"container/list"
	"sync"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/parc-forge/athena/std/types/priority_queue"
)

type csEntry struct {
	content  *defn.ContentObject
	size     int64
	hasExpiry bool
	expiryMs  int64
	hasRct    bool
	rctMs     int64

	nameKey      string
	hasKeyIdKey  bool
	keyIdKey     string
	hasHashKey   bool
	hashKey      string

	indexCount int
	lruElem    *list.Element
	expiryItem *priority_queue.Item[*csEntry, int64]
	rctItem    *priority_queue.Item[*csEntry, int64]
}

// ContentStore is the LRU-variant content cache (spec §4.4): capacity
// expressed in bytes, with three name-derived indices and three eviction
// tiers (expired, past-RCT, LRU tail).
type ContentStore struct {
	mu            sync.Mutex
	clock         defn.Clock
	capacityBytes int64
	currentSize   int64

	byName     map[string]*csEntry
	byNameKeyId map[string]*csEntry
	byNameHash map[string]*csEntry

	lru        *list.List
	expiryHeap priority_queue.Queue[*csEntry, int64]
	rctHeap    priority_queue.Queue[*csEntry, int64]

	matchHits   int64
	matchMisses int64
}

// NewContentStore constructs an empty content store with the given capacity in bytes.
func NewContentStore(capacityBytes int64, clock defn.Clock) *ContentStore {
	return &ContentStore{
		clock:         clock,
		capacityBytes: capacityBytes,
		byName:        make(map[string]*csEntry),
		byNameKeyId:   make(map[string]*csEntry),
		byNameHash:    make(map[string]*csEntry),
		lru:           list.New(),
		expiryHeap:    priority_queue.New[*csEntry, int64](),
		rctHeap:       priority_queue.New[*csEntry, int64](),
	}
}

func contentSize(content *defn.ContentObject) int64 {
	return int64(len(content.NameV.String()) + len(content.Payload))
}

// Put implements spec §4.4's put.
func (cs *ContentStore) Put(content *defn.ContentObject) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.clock.WallMs()
	if content.HasExpiry && content.ExpiryMs <= now {
		return false
	}

	size := contentSize(content)
	if size+cs.currentSize > cs.capacityBytes {
		if !cs.makeRoomLocked(size) {
			return false
		}
	}

	e := &csEntry{
		content:   content,
		size:      size,
		hasExpiry: content.HasExpiry,
		expiryMs:  content.ExpiryMs,
		hasRct:    content.HasRct,
		rctMs:     content.RctMs,
	}

	e.nameKey = content.NameV.Key()
	cs.replaceAt(cs.byName, e.nameKey, e)
	e.indexCount++

	if len(content.KeyId) > 0 {
		e.keyIdKey = combineKey(content.NameV, content.KeyId)
		e.hasKeyIdKey = true
		cs.replaceAt(cs.byNameKeyId, e.keyIdKey, e)
		e.indexCount++
	}
	if len(content.ContentHash) > 0 {
		e.hashKey = combineKey(content.NameV, content.ContentHash)
		e.hasHashKey = true
		cs.replaceAt(cs.byNameHash, e.hashKey, e)
		e.indexCount++
	}

	e.lruElem = cs.lru.PushFront(e)
	if e.hasExpiry {
		e.expiryItem = cs.expiryHeap.Push(e, e.expiryMs)
	}
	if e.hasRct {
		e.rctItem = cs.rctHeap.Push(e, e.rctMs)
	}
	cs.currentSize += size
	return true
}

// replaceAt installs newEntry at key in m, decrementing the displaced
// entry's index_count (spec §4.4: "the displaced entry's index_count is
// decremented").
func (cs *ContentStore) replaceAt(m map[string]*csEntry, key string, newEntry *csEntry) {
	if old, ok := m[key]; ok {
		old.indexCount--
		if old.indexCount <= 0 {
			cs.teardownLocked(old)
		}
	}
	m[key] = newEntry
}

// teardownLocked removes an entry from the LRU list, the time-ordered
// heaps, and size accounting. It assumes the entry is no longer referenced
// by any index map.
func (cs *ContentStore) teardownLocked(e *csEntry) {
	if e.lruElem != nil {
		cs.lru.Remove(e.lruElem)
		e.lruElem = nil
	}
	if e.expiryItem != nil {
		cs.expiryHeap.Remove(e.expiryItem)
	}
	if e.rctItem != nil {
		cs.rctHeap.Remove(e.rctItem)
	}
	cs.currentSize -= e.size
}

// removeEntryCompletelyLocked purges an entry deliberately (RemoveMatch,
// expiry-on-get, eviction tiers), dropping it from every index that still
// points to it regardless of index_count bookkeeping.
func (cs *ContentStore) removeEntryCompletelyLocked(e *csEntry) {
	if cs.byName[e.nameKey] == e {
		delete(cs.byName, e.nameKey)
	}
	if e.hasKeyIdKey && cs.byNameKeyId[e.keyIdKey] == e {
		delete(cs.byNameKeyId, e.keyIdKey)
	}
	if e.hasHashKey && cs.byNameHash[e.hashKey] == e {
		delete(cs.byNameHash, e.hashKey)
	}
	cs.teardownLocked(e)
}

// GetMatch implements spec §4.4's get_match: most-specific index first.
func (cs *ContentStore) GetMatch(interest *defn.Interest) (*defn.ContentObject, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var e *csEntry
	switch {
	case len(interest.ContentObjectHash) > 0:
		e = cs.byNameHash[combineKey(interest.NameV, interest.ContentObjectHash)]
	case len(interest.KeyId) > 0:
		e = cs.byNameKeyId[combineKey(interest.NameV, interest.KeyId)]
	default:
		e = cs.byName[interest.NameV.Key()]
	}

	if e == nil {
		cs.matchMisses++
		return nil, false
	}

	now := cs.clock.WallMs()
	if e.hasExpiry && e.expiryMs <= now {
		cs.removeEntryCompletelyLocked(e)
		cs.matchMisses++
		return nil, false
	}

	cs.lru.MoveToFront(e.lruElem)
	cs.matchHits++
	return e.content, true
}

// RemoveMatch implements spec §4.4's remove_match: same specificity order, first hit purged.
func (cs *ContentStore) RemoveMatch(name defn.Name, keyId, hash []byte) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var e *csEntry
	switch {
	case len(hash) > 0:
		e = cs.byNameHash[combineKey(name, hash)]
	case len(keyId) > 0:
		e = cs.byNameKeyId[combineKey(name, keyId)]
	default:
		e = cs.byName[name.Key()]
	}
	if e == nil {
		return false
	}
	cs.removeEntryCompletelyLocked(e)
	return true
}

// MakeRoom implements spec §4.4's make_room: three eviction tiers, expired
// then past-RCT then LRU-tail, re-checking the inequality between tiers.
func (cs *ContentStore) MakeRoom(sizeNeeded int64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.makeRoomLocked(sizeNeeded)
}

func (cs *ContentStore) makeRoomLocked(sizeNeeded int64) bool {
	if sizeNeeded > cs.capacityBytes {
		return false
	}
	now := cs.clock.WallMs()

	for cs.capacityBytes-cs.currentSize < sizeNeeded && cs.expiryHeap.Len() > 0 && cs.expiryHeap.PeekPriority() <= now {
		e := cs.expiryHeap.Pop()
		cs.removeEntryCompletelyLocked(e)
	}

	for cs.capacityBytes-cs.currentSize < sizeNeeded && cs.rctHeap.Len() > 0 && cs.rctHeap.PeekPriority() <= now {
		e := cs.rctHeap.Pop()
		cs.removeEntryCompletelyLocked(e)
	}

	for cs.capacityBytes-cs.currentSize < sizeNeeded && cs.lru.Len() > 0 {
		back := cs.lru.Back()
		e := back.Value.(*csEntry)
		cs.removeEntryCompletelyLocked(e)
	}

	return cs.capacityBytes-cs.currentSize >= sizeNeeded
}

// SetCapacity implements spec §4.4's set_capacity: discards all current
// content and rebuilds empty index structures, the open question in spec
// §9(a) resolved in favor of the source's simpler, destructive behavior.
func (cs *ContentStore) SetCapacity(newCapacityBytes int64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.capacityBytes = newCapacityBytes
	cs.currentSize = 0
	cs.byName = make(map[string]*csEntry)
	cs.byNameKeyId = make(map[string]*csEntry)
	cs.byNameHash = make(map[string]*csEntry)
	cs.lru = list.New()
	cs.expiryHeap = priority_queue.New[*csEntry, int64]()
	cs.rctHeap = priority_queue.New[*csEntry, int64]()
}

// Stats returns (match_hits, match_misses) counters.
func (cs *ContentStore) Stats() (hits, misses int64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.matchHits, cs.matchMisses
}

// Size returns current bytes used.
func (cs *ContentStore) Size() int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.currentSize
}
