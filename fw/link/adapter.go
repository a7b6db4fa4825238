package link

import (
	"sync"
	"time"

	"github.com/parc-forge/athena/fw/defn"
)

// RemoveLinkFunc is invoked once a routable link is fully closed; PIT/FIB
// MUST hold no references to its LinkId before the callback returns (spec
// §3 "Ownership").
type RemoveLinkFunc func(defn.LinkId)

// Adapter is the TransportLinkAdapter (spec §4.1).
type Adapter struct {
	mu          sync.Mutex
	links       map[string]*Link   // by name, listeners and connections
	byId        map[defn.LinkId]*Link
	nextScan    int // round-robin cursor into orderedIds
	orderedIds  []defn.LinkId
	onRemove    RemoveLinkFunc
}

var _ Promoter = (*Adapter)(nil)

// NewAdapter constructs an empty adapter. onRemove is invoked synchronously
// from Close/CloseByName once a routable link's state has been torn down.
func NewAdapter(onRemove RemoveLinkFunc) *Adapter {
	return &Adapter{
		links:    make(map[string]*Link),
		byId:     make(map[defn.LinkId]*Link),
		onRemove: onRemove,
	}
}

func (a *Adapter) lowestFreeId() defn.LinkId {
	id := defn.LinkId(0)
	for {
		if _, used := a.byId[id]; !used {
			return id
		}
		id++
	}
}

// Open opens a new link from a URI (spec §4.1's open operation).
func (a *Adapter) Open(uri string) (string, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	proto, ok := lookupModule(parsed.Scheme)
	if !ok {
		return "", defn.NewError(defn.ErrNotFound, "no link module registered for scheme %q", parsed.Scheme)
	}

	module, routable, err := proto.Open(parsed.Authority, parsed.Options)
	if err != nil {
		return "", err
	}

	name := parsed.Options.Name
	if name == "" {
		name = parsed.Scheme + "://" + parsed.Authority
	}

	// listeners default local=true, connections default local=false
	local := localOrDefault(parsed.Options, !routable)

	a.mu.Lock()
	if _, exists := a.links[name]; exists {
		a.mu.Unlock()
		module.Close()
		return "", defn.NewError(defn.ErrAlreadyExists, "link %q already exists", name)
	}

	var id defn.LinkId = -1
	if routable {
		id = a.lowestFreeId()
	}

	l := newLink(name, routable, local, parsed.Options.LocalSet, id, module)
	a.links[name] = l
	if routable {
		a.byId[id] = l
		a.orderedIds = append(a.orderedIds, id)
	}
	a.mu.Unlock()

	// A listener may spawn child links after Open returns (accept/demux);
	// bind this Adapter as its Promoter before it starts doing so, so no
	// child is ever created with nowhere to register (spec §4.1 "Listener
	// demultiplexing").
	if !routable {
		if promotable, ok := module.(Promotable); ok {
			promotable.BindPromoter(a)
		}
	}

	return name, nil
}

// AddLink registers an already-open module as a new routable link, for a
// listener's accept/demux loop to call through the Promoter interface once
// it has accepted or demultiplexed a child connection (spec §4.1 "Listener
// demultiplexing": the child link "surfaces through the same Adapter as
// directly opened links").
func (a *Adapter) AddLink(name string, local, localForced bool, module Module) (defn.LinkId, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.links[name]; exists {
		return 0, defn.NewError(defn.ErrAlreadyExists, "link %q already exists", name)
	}

	id := a.lowestFreeId()
	l := newLink(name, true, local, localForced, id, module)
	a.links[name] = l
	a.byId[id] = l
	a.orderedIds = append(a.orderedIds, id)
	return id, nil
}

// Close closes every link named by linkVector's LinkIds, returning the
// subset actually closed (spec §4.1's close operation).
func (a *Adapter) Close(linkVector defn.LinkVector) defn.LinkVector {
	result := defn.NewLinkVector()
	for _, id := range linkVector.Ids() {
		a.mu.Lock()
		l, ok := a.byId[id]
		a.mu.Unlock()
		if !ok {
			continue
		}
		if err := a.CloseByName(l.Name); err == nil {
			result.Set(id)
		}
	}
	return result
}

// CloseByName closes a single link by name.
func (a *Adapter) CloseByName(name string) error {
	a.mu.Lock()
	l, ok := a.links[name]
	if !ok {
		a.mu.Unlock()
		return defn.NewError(defn.ErrNotFound, "unknown link %q", name)
	}
	delete(a.links, name)
	if l.Routable {
		delete(a.byId, l.Id)
		a.removeFromOrder(l.Id)
	}
	a.mu.Unlock()

	l.Close()

	if l.Routable && a.onRemove != nil {
		a.onRemove(l.Id)
	}
	return nil
}

func (a *Adapter) removeFromOrder(id defn.LinkId) {
	for i, v := range a.orderedIds {
		if v == id {
			a.orderedIds = append(a.orderedIds[:i], a.orderedIds[i+1:]...)
			return
		}
	}
}

// SendResult pairs the vector of links accepted against.
type SendResult = defn.LinkVector

// Send implements spec §4.1's send: for each bit in egressVector, drops the
// bit unless the link exists, is send-ready, and (for non-local sends of an
// Interest) the hop limit is still positive. Returns the accepted subset.
func (a *Adapter) Send(wire []byte, isInterest bool, hopLimit uint8, egressVector defn.LinkVector) SendResult {
	result := defn.NewLinkVector()
	for _, id := range egressVector.Ids() {
		a.mu.Lock()
		l, ok := a.byId[id]
		a.mu.Unlock()
		if !ok || !l.CanSend() {
			continue
		}
		if isInterest && !l.Local && hopLimit == 0 {
			continue
		}
		if l.Send(wire) {
			result.Set(id)
		}
	}
	return result
}

// Received is one (message, ingress) pair returned by Receive.
type Received struct {
	Wire    []byte
	Ingress defn.LinkVector
}

// Receive implements spec §4.1's receive: round-robin scan starting after
// the last link that produced a message; after an empty pass it sleeps 1ms
// and rescans, repeatedly, until timeout has elapsed, returning ErrWouldBlock
// if every scan came up empty.
func (a *Adapter) Receive(timeout time.Duration) (*Received, error) {
	if r, ok := a.scanOnce(); ok {
		return r, nil
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
		if r, ok := a.scanOnce(); ok {
			return r, nil
		}
	}
	return nil, defn.NewError(defn.ErrWouldBlock, "no link ready within timeout")
}

func (a *Adapter) scanOnce() (*Received, bool) {
	a.mu.Lock()
	order := append([]defn.LinkId{}, a.orderedIds...)
	start := a.nextScan
	a.mu.Unlock()

	if len(order) == 0 {
		return nil, false
	}

	for i := 0; i < len(order); i++ {
		idx := (start + i) % len(order)
		id := order[idx]

		a.mu.Lock()
		l, ok := a.byId[id]
		a.mu.Unlock()
		if !ok || !l.CanReceive() {
			continue
		}

		wire, ok := l.Receive()
		if !ok {
			continue
		}

		a.mu.Lock()
		a.nextScan = (idx + 1) % len(order)
		a.mu.Unlock()

		return &Received{Wire: wire, Ingress: defn.LinkVectorOf(id)}, true
	}
	return nil, false
}

// LinkNameToId looks up the LinkId for a routable link name.
func (a *Adapter) LinkNameToId(name string) (defn.LinkId, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.links[name]
	if !ok || !l.Routable {
		return 0, false
	}
	return l.Id, true
}

// LinkIdToName looks up the name for a routable LinkId.
func (a *Adapter) LinkIdToName(id defn.LinkId) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.byId[id]
	if !ok {
		return "", false
	}
	return l.Name, true
}

// IsNotLocal reports whether id names a non-local link.
func (a *Adapter) IsNotLocal(id defn.LinkId) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.byId[id]
	if !ok {
		return true
	}
	return !l.Local
}

// LinkInfo is one entry of ListLinks, shaped for the
// TransportLinkAdapter/list control response (spec §4.1/§4.6).
type LinkInfo struct {
	LinkName    string
	Index       int
	NotLocal    bool
	LocalForced bool
}

// ListLinks returns every registered link for the control-plane `list`
// command.
func (a *Adapter) ListLinks() []LinkInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]LinkInfo, 0, len(a.links))
	for _, l := range a.links {
		out = append(out, LinkInfo{
			LinkName:    l.Name,
			Index:       int(l.Id),
			NotLocal:    !l.Local,
			LocalForced: l.LocalForced,
		})
	}
	return out
}
