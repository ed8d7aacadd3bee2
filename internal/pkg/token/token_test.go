package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestNewNumericCode_RejectsZeroLength(t *testing.T) {
	_, err := NewNumericCode(0)
	assert.Error(t, err)
}
