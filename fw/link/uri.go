package link

import (
	"net/url"
	"strings"

	"github.com/gorilla/schema"

	"github.com/parc-forge/athena/fw/defn"
)

var optionsDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(false)
	return d
}()

// ParsedURI is the decomposed form of a link URI (spec §6 grammar):
// scheme "://" authority ("/" option)*
type ParsedURI struct {
	Scheme    string
	Authority string
	Options   Options
}

// ParseURI parses a link URI per spec §6's grammar. Option parsing is
// order-independent; an unrecognized option fails with ErrInvalid.
func ParseURI(uri string) (*ParsedURI, error) {
	schemeSplit := strings.SplitN(uri, "://", 2)
	if len(schemeSplit) != 2 {
		return nil, defn.NewError(defn.ErrInvalid, "missing scheme in link URI %q", uri)
	}
	scheme := schemeSplit[0]
	switch scheme {
	case "tcp", "udp", "udp6", "eth", "ws":
		// ws is a supplemental scheme beyond spec §6's fixed set (SPEC_FULL §3).
	case "null":
		// null is the in-memory test transport (null.go), used by this
		// package's own tests and by fw/dispatch/fw/athena tests that need
		// a real Adapter without real sockets.
	default:
		return nil, defn.NewError(defn.ErrInvalid, "unrecognized scheme %q", scheme)
	}

	rest := schemeSplit[1]
	parts := strings.Split(rest, "/")
	authority := parts[0]
	if authority == "" {
		return nil, defn.NewError(defn.ErrInvalid, "empty authority in link URI %q", uri)
	}

	values := url.Values{}
	for _, opt := range parts[1:] {
		if opt == "" {
			continue
		}
		if opt == "listener" {
			values.Set("listener", "true")
			continue
		}
		kv := strings.SplitN(opt, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, defn.NewError(defn.ErrInvalid, "unrecognized option %q", opt)
		}
		values.Set(kv[0], kv[1])
	}

	opts := Options{}
	if err := optionsDecoder.Decode(&opts, values); err != nil {
		return nil, defn.WrapError(defn.ErrInvalid, err, "parsing link URI options")
	}
	if opts.Mtu < 0 {
		return nil, defn.NewError(defn.ErrInvalid, "invalid mtu= value %d", opts.Mtu)
	}
	opts.LocalSet = values.Has("local")

	return &ParsedURI{Scheme: scheme, Authority: authority, Options: opts}, nil
}
