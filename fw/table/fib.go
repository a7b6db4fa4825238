// Package table implements the three in-memory forwarding tables: the FIB
// (this file), the PIT (pit.go) and the LRU Content Store (cs.go). All three
// are grounded on the teacher's fw/table package layout and on the PIT/CS
// test fixtures retained from fw/table/pit-cs_test.go.
package table

import (
	"sync"

	"github.com/parc-forge/athena/fw/defn"
)

// Fib is the Forwarding Information Base: name-prefix -> LinkVector (spec
// §4.2). The teacher's version used a flat map with linear prefix probing;
// this keeps that approach since the spec explicitly permits (but doesn't
// require) a trie.
type Fib struct {
	mu      sync.RWMutex
	entries map[string]*fibEntry
}

type fibEntry struct {
	prefix defn.Name
	links  defn.LinkVector
}

// NewFib constructs an empty FIB.
func NewFib() *Fib {
	return &Fib{entries: make(map[string]*fibEntry)}
}

// AddRoute unions linkVector into the entry for name, creating it if absent.
func (f *Fib) AddRoute(name defn.Name, linkVector defn.LinkVector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := name.Key()
	e, ok := f.entries[key]
	if !ok {
		e = &fibEntry{prefix: name, links: defn.NewLinkVector()}
		f.entries[key] = e
	}
	e.links = e.links.Union(linkVector)
}

// DeleteRoute differences linkVector out of the entry for name; if the entry
// becomes empty it is removed.
func (f *Fib) DeleteRoute(name defn.Name, linkVector defn.LinkVector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := name.Key()
	e, ok := f.entries[key]
	if !ok {
		return
	}
	e.links = e.links.Difference(linkVector)
	if e.links.IsEmpty() {
		delete(f.entries, key)
	}
}

// RemoveLink applies DeleteRoute semantics across every entry (spec §4.2).
func (f *Fib) RemoveLink(linkVector defn.LinkVector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, e := range f.entries {
		e.links = e.links.Difference(linkVector)
		if e.links.IsEmpty() {
			delete(f.entries, key)
		}
	}
}

// Lookup performs longest-prefix match: among all stored prefixes that are a
// prefix of name, returns the LinkVector of the longest. Returns an empty
// vector if none match.
func (f *Fib) Lookup(name defn.Name) defn.LinkVector {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var best *fibEntry
	for _, e := range f.entries {
		if !e.prefix.IsPrefix(name) {
			continue
		}
		if best == nil || len(e.prefix) > len(best.prefix) {
			best = e
		}
	}
	if best == nil {
		return defn.NewLinkVector()
	}
	return best.links.Clone()
}

// FibListEntry is one (prefix, LinkId) record, as returned by ListEntries.
type FibListEntry struct {
	Prefix defn.Name
	Link   defn.LinkId
}

// ListEntries returns one record per (prefix x set bit); ordering is
// unspecified (spec §4.2).
func (f *Fib) ListEntries() []FibListEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []FibListEntry
	for _, e := range f.entries {
		for _, id := range e.links.Ids() {
			out = append(out, FibListEntry{Prefix: e.prefix, Link: id})
		}
	}
	return out
}
