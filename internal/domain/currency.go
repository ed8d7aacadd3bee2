package domain

import (
	"strings"
	"time"
)

// CurrencyCode is an upper-case three-letter ISO-4217 style code.
type CurrencyCode string

const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
)

// NormalizeCode trims and upper-cases s and checks that it is three ASCII letters.
func NormalizeCode(s string) (CurrencyCode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", false
		}
	}
	return CurrencyCode(s), true
}

// Pair is an ordered currency pair. Use it as a map key instead of a
// concatenated string.
type Pair struct {
	From CurrencyCode
	To   CurrencyCode
}

// NewPair normalizes both codes; the ValidationError names the rejected side.
func NewPair(from, to string) (Pair, error) {
	f, ok := NormalizeCode(from)
	if !ok {
		return Pair{}, NewValidationError("from", "must be a 3-letter currency code")
	}
	t, ok := NormalizeCode(to)
	if !ok {
		return Pair{}, NewValidationError("to", "must be a 3-letter currency code")
	}
	return Pair{From: f, To: t}, nil
}

func (p Pair) String() string { return string(p.From) + "/" + string(p.To) }

// Key renders the pair as "FROM_TO", the shape used in batch responses.
func (p Pair) Key() string { return string(p.From) + "_" + string(p.To) }

// Same reports whether both sides are the same currency.
func (p Pair) Same() bool { return p.From == p.To }

// ParsePairKey is the inverse of Pair.Key.
func ParsePairKey(key string) (Pair, error) {
	from, to, ok := strings.Cut(key, "_")
	if !ok {
		return Pair{}, NewValidationError("pair", "expected FROM_TO")
	}
	return NewPair(from, to)
}

// FeeMode selects the fee rate applied to an exchange.
type FeeMode string

const (
	FeeStandard FeeMode = "standard"
	FeeExpress  FeeMode = "express"
	FeeEconomy  FeeMode = "economy"
)

// ResolveFeeMode maps any input onto a known mode; unknown or empty is standard.
func ResolveFeeMode(s string) FeeMode {
	switch FeeMode(strings.ToLower(strings.TrimSpace(s))) {
	case FeeExpress:
		return FeeExpress
	case FeeEconomy:
		return FeeEconomy
	default:
		return FeeStandard
	}
}

// Currency is a catalogue entry. PK: code.
type Currency struct {
	Code      CurrencyCode `json:"code" dynamodbav:"code"`
	Name      string       `json:"name" dynamodbav:"name"`
	Symbol    string       `json:"symbol" dynamodbav:"symbol"`
	Active    bool         `json:"is_active" dynamodbav:"is_active"`
	CreatedAt time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" dynamodbav:"updated_at"`
}

type CreateCurrencyRequest struct {
	Code   string `json:"code" validate:"required,currency"`
	Name   string `json:"name" validate:"required,max=100"`
	Symbol string `json:"symbol" validate:"max=8"`
	Active *bool  `json:"is_active"`
}

type UpdateCurrencyRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Symbol *string `json:"symbol" validate:"omitempty,max=8"`
	Active *bool   `json:"is_active"`
}
