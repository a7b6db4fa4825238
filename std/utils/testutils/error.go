package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testT *testing.T

// SetT binds the package's test helpers to t's failure reporting.
func SetT(t *testing.T) {
	testT = t
}

// NoErr fails the bound test if err is non-nil, otherwise returns v. Lets
// setup calls like Create(...) be wrapped inline instead of checked with a
// separate require.NoError line.
func NoErr[T any](v T, err error) T {
	require.NoError(testT, err)
	return v
}
