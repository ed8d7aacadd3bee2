package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewNumericCode returns n random decimal digits, leading zeros kept.
func NewNumericCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}
	b := make([]byte, n)
	ten := big.NewInt(10)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = byte('0' + d.Int64())
	}
	return string(b), nil
}
