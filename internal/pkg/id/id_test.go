package id

import (
	"sort"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsULID(t *testing.T) {
	_, err := ulid.ParseStrict(New())
	require.NoError(t, err)
}

func TestNew_Monotonic(t *testing.T) {
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestWithPrefix(t *testing.T) {
	ref := WithPrefix("txn")
	require.True(t, strings.HasPrefix(ref, "TXN-"))
	_, err := ulid.ParseStrict(strings.TrimPrefix(ref, "TXN-"))
	assert.NoError(t, err)
	assert.NotEqual(t, ref, WithPrefix("TXN"))
}
