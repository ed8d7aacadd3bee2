package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistItem is a pair a user follows. PK: user_id, SK: watchlist_id.
type WatchlistItem struct {
	WatchlistID  string          `json:"id"`
	UserID       string          `json:"user_id"`
	FromCurrency CurrencyCode    `json:"from_currency"`
	ToCurrency   CurrencyCode    `json:"to_currency"`
	LastRate     decimal.Decimal `json:"current_rate"`
	RateSource   string          `json:"rate_source,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type AddWatchlistRequest struct {
	From string `json:"from_currency" validate:"required,currency"`
	To   string `json:"to_currency" validate:"required,currency"`
}

// RateAlert fires when a pair moves ThresholdPercent away from BaselineRate.
// PK: user_id, SK: pair key.
type RateAlert struct {
	UserID           string          `json:"user_id"`
	FromCurrency     CurrencyCode    `json:"from_currency"`
	ToCurrency       CurrencyCode    `json:"to_currency"`
	ThresholdPercent decimal.Decimal `json:"threshold_percent"`
	BaselineRate     decimal.Decimal `json:"baseline_rate"`
	CreatedAt        time.Time       `json:"created_at"`
}

type SetAlertRequest struct {
	From      string          `json:"from_currency" validate:"required,currency"`
	To        string          `json:"to_currency" validate:"required,currency"`
	Threshold decimal.Decimal `json:"threshold"`
}

// AlertStatus is a RateAlert evaluated against the current rate.
type AlertStatus struct {
	Alert         RateAlert       `json:"alert"`
	CurrentRate   decimal.Decimal `json:"current_rate"`
	PreviousRate  decimal.Decimal `json:"previous_rate"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Triggered     bool            `json:"triggered"`
}
