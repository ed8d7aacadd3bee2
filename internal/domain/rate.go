package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate sources reported alongside every quote.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
	SourceIdentity = "identity"
	SourceReserved = "reserved"
)

// RateQuote is one priced pair. It is never persisted.
type RateQuote struct {
	From      CurrencyCode    `json:"from"`
	To        CurrencyCode    `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// RateTable is every known rate against one base currency.
type RateTable struct {
	Base      CurrencyCode                     `json:"base"`
	Rates     map[CurrencyCode]decimal.Decimal `json:"rates"`
	Source    string                           `json:"source"`
	Date      string                           `json:"date,omitempty"`
	FetchedAt time.Time                        `json:"fetched_at"`
}

// RateReservation locks a rate for a user until ExpiresAt. PK: reservation_id.
type RateReservation struct {
	ReservationID string          `json:"reservation_id"`
	UserID        string          `json:"user_id"`
	FromCurrency  CurrencyCode    `json:"from_currency"`
	ToCurrency    CurrencyCode    `json:"to_currency"`
	Amount        decimal.Decimal `json:"amount"`
	Rate          decimal.Decimal `json:"reserved_rate"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Used          bool            `json:"used"`
}

// Active reports whether the reservation can still be redeemed at now.
func (r *RateReservation) Active(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}

type ReserveRequest struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// ConnectionStatus is the outcome of probing the rate oracle.
type ConnectionStatus struct {
	Connected bool      `json:"connected"`
	Source    string    `json:"source"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
