package defn

// MessageKind discriminates the three wire message kinds the core handles
// (spec §3/§4.5).
type MessageKind int

const (
	KindInterest MessageKind = iota
	KindContentObject
	KindInterestReturn
)

// Interest is an immutable request for named content (spec §3).
type Interest struct {
	NameV                 Name
	HasName               bool
	KeyId                 []byte // optional restriction
	ContentObjectHash     []byte // optional restriction
	LifetimeMs            int64
	HopLimit              uint8
	Payload               []byte
	Wire                  []byte
}

// ReturnReason enumerates why an InterestReturn was generated (subset used
// by the dispatcher; see spec §4.5's NoRoute case).
type ReturnReason int

const (
	ReturnNoRoute ReturnReason = iota
	ReturnCongestion
	ReturnNoResources
	ReturnPathError
	ReturnHopLimitExceeded
)

// InterestReturn is an explicit negative acknowledgment carrying back the
// Interest that could not be satisfied (spec §3/§4.5).
type InterestReturn struct {
	Reason   ReturnReason
	Interest *Interest
	Wire     []byte
}

// ContentObject is an immutable, named, signed data payload (spec §3).
type ContentObject struct {
	NameV         Name
	HasName       bool
	KeyId         []byte
	ContentHash   []byte // computed digest, optional until filled by the codec
	HasExpiry     bool
	ExpiryMs      int64 // absolute wall-clock ms
	HasRct        bool
	RctMs         int64 // absolute wall-clock ms, Recommended Cache Time
	Payload       []byte
	Wire          []byte
}

// Message is the sum-type the Dispatcher operates on.
type Message struct {
	Kind      MessageKind
	Interest  *Interest
	Content   *ContentObject
	Return    *InterestReturn
}
