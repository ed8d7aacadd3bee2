package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
)

// Transaction is a completed exchange. PK: transaction_id; GSI user_id + created_at.
type Transaction struct {
	TransactionID string            `json:"id"`
	Reference     string            `json:"reference_number"`
	UserID        string            `json:"user_id"`
	FromCurrency  CurrencyCode      `json:"from_currency"`
	ToCurrency    CurrencyCode      `json:"to_currency"`
	FromAmount    decimal.Decimal   `json:"from_amount"`
	ToAmount      decimal.Decimal   `json:"to_amount"`
	ExchangeRate  decimal.Decimal   `json:"exchange_rate"`
	FeeMode       FeeMode           `json:"fee_mode"`
	FeeAmount     decimal.Decimal   `json:"fee_amount"`
	TotalCost     decimal.Decimal   `json:"total_cost"`
	RateSource    string            `json:"rate_source"`
	ReservationID string            `json:"reservation_id,omitempty"`
	ReceiptKey    string            `json:"receipt_key,omitempty"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

type ExchangeRequest struct {
	From          string          `json:"from" validate:"required"`
	To            string          `json:"to" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	FeeMode       string          `json:"fee_mode" validate:"omitempty,fee_mode"`
	ReservationID string          `json:"reservation_id"`
}

// TransactionEvent is published once a transaction completes.
type TransactionEvent struct {
	Type        string       `json:"type"`
	Transaction *Transaction `json:"transaction"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

const EventTransactionCompleted = "transaction.completed"
