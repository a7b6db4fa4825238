package defn_test

import (
	"testing"

	"github.com/parc-forge/athena/fw/defn"
	"github.com/stretchr/testify/assert"
)

func TestNameFromStrAndEqual(t *testing.T) {
	a := defn.NameFromStr("ccnx:/foo/bar")
	b := defn.NameFromStr("/foo/bar")
	assert.True(t, a.Equal(b))
	assert.Equal(t, 2, len(a))
}

func TestNameIsPrefix(t *testing.T) {
	prefix := defn.NameFromStr("lci:/foo/bar")
	name := defn.NameFromStr("lci:/foo/bar/x")
	other := defn.NameFromStr("lci:/foo/baz")

	assert.True(t, prefix.IsPrefix(name))
	assert.False(t, prefix.IsPrefix(other))
	assert.True(t, name.IsPrefix(name))
	assert.False(t, name.IsPrefix(prefix))
}

func TestNameAppend(t *testing.T) {
	base := defn.NameFromStr("/a/b")
	appended := base.Append(defn.Component{Type: defn.TypeGeneric, Val: []byte("c")})
	assert.True(t, appended.Equal(defn.NameFromStr("/a/b/c")))
	// base must remain unmodified (immutability)
	assert.True(t, base.Equal(defn.NameFromStr("/a/b")))
}

func TestNameKeyDistinguishesSegments(t *testing.T) {
	// "/ab" + "/c" must not collide with "/a" + "/bc" as map keys.
	n1 := defn.NewName(
		defn.Component{Type: defn.TypeGeneric, Val: []byte("ab")},
		defn.Component{Type: defn.TypeGeneric, Val: []byte("c")},
	)
	n2 := defn.NewName(
		defn.Component{Type: defn.TypeGeneric, Val: []byte("a")},
		defn.Component{Type: defn.TypeGeneric, Val: []byte("bc")},
	)
	assert.NotEqual(t, n1.Key(), n2.Key())
}
