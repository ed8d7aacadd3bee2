// Package id mints sortable identifiers for DynamoDB items and
// user-facing references.
package id

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID. IDs from one process are strictly increasing, so
// items sorted by id come back in creation order.
func New() string {
	return ulid.Make().String()
}

// WithPrefix returns an upper-case reference such as TXN-01HV... or RES-01HV....
func WithPrefix(prefix string) string {
	return strings.ToUpper(prefix) + "-" + New()
}
