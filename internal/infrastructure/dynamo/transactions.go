package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/currency-exchange-api/internal/domain"
)

// transactionRecord is the stored shape of a domain.Transaction. Amounts are
// decimal strings so no precision is lost in DynamoDB numbers.
type transactionRecord struct {
	TransactionID string `dynamodbav:"transaction_id"`
	Reference     string `dynamodbav:"reference_number"`
	UserID        string `dynamodbav:"user_id"`
	FromCurrency  string `dynamodbav:"from_currency"`
	ToCurrency    string `dynamodbav:"to_currency"`
	FromAmount    string `dynamodbav:"from_amount"`
	ToAmount      string `dynamodbav:"to_amount"`
	ExchangeRate  string `dynamodbav:"exchange_rate"`
	FeeMode       string `dynamodbav:"fee_mode"`
	FeeAmount     string `dynamodbav:"fee_amount"`
	TotalCost     string `dynamodbav:"total_cost"`
	RateSource    string `dynamodbav:"rate_source"`
	ReservationID string `dynamodbav:"reservation_id,omitempty"`
	ReceiptKey    string `dynamodbav:"receipt_key,omitempty"`
	Status        string `dynamodbav:"status"`
	CreatedAt     string `dynamodbav:"created_at"`
	CompletedAt   string `dynamodbav:"completed_at,omitempty"`
}

func toTransactionRecord(tx *domain.Transaction) transactionRecord {
	rec := transactionRecord{
		TransactionID: tx.TransactionID,
		Reference:     tx.Reference,
		UserID:        tx.UserID,
		FromCurrency:  string(tx.FromCurrency),
		ToCurrency:    string(tx.ToCurrency),
		FromAmount:    tx.FromAmount.String(),
		ToAmount:      tx.ToAmount.String(),
		ExchangeRate:  tx.ExchangeRate.String(),
		FeeMode:       string(tx.FeeMode),
		FeeAmount:     tx.FeeAmount.String(),
		TotalCost:     tx.TotalCost.String(),
		RateSource:    tx.RateSource,
		ReservationID: tx.ReservationID,
		ReceiptKey:    tx.ReceiptKey,
		Status:        string(tx.Status),
		CreatedAt:     formatTime(tx.CreatedAt),
	}
	if tx.CompletedAt != nil {
		rec.CompletedAt = formatTime(*tx.CompletedAt)
	}
	return rec
}

func (rec transactionRecord) toDomain() (domain.Transaction, error) {
	tx := domain.Transaction{
		TransactionID: rec.TransactionID,
		Reference:     rec.Reference,
		UserID:        rec.UserID,
		FromCurrency:  domain.CurrencyCode(rec.FromCurrency),
		ToCurrency:    domain.CurrencyCode(rec.ToCurrency),
		FeeMode:       domain.FeeMode(rec.FeeMode),
		RateSource:    rec.RateSource,
		ReservationID: rec.ReservationID,
		ReceiptKey:    rec.ReceiptKey,
		Status:        domain.TransactionStatus(rec.Status),
	}
	var err error
	if tx.FromAmount, err = parseDecimal("from_amount", rec.FromAmount); err != nil {
		return tx, err
	}
	if tx.ToAmount, err = parseDecimal("to_amount", rec.ToAmount); err != nil {
		return tx, err
	}
	if tx.ExchangeRate, err = parseDecimal("exchange_rate", rec.ExchangeRate); err != nil {
		return tx, err
	}
	if tx.FeeAmount, err = parseDecimal("fee_amount", rec.FeeAmount); err != nil {
		return tx, err
	}
	if tx.TotalCost, err = parseDecimal("total_cost", rec.TotalCost); err != nil {
		return tx, err
	}
	if tx.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
		return tx, err
	}
	if rec.CompletedAt != "" {
		t, err := parseTime(rec.CompletedAt)
		if err != nil {
			return tx, err
		}
		tx.CompletedAt = &t
	}
	return tx, nil
}

// TransactionRepo stores exchange transactions.
// PK: transaction_id; GSI user_id-created_at-index for per-user history.
type TransactionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTransactionRepo(client *dynamodb.Client, tableName string) *TransactionRepo {
	return &TransactionRepo{client: client, tableName: tableName}
}

func (r *TransactionRepo) Put(ctx context.Context, tx *domain.Transaction) error {
	item, err := attributevalue.MarshalMap(toTransactionRecord(tx))
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldTransactionID, transactionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("transaction not found: %w", domain.ErrNotFound)
	}
	var rec transactionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	tx, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListByUser returns up to limit transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Transaction, error) {
	out, err := r.client.Query(ctx, r.userQuery(userID, limit, nil))
	if err != nil {
		return nil, err
	}
	return decodeTransactions(out.Items)
}

// AllByUser pages through every transaction of userID.
func (r *TransactionRepo) AllByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	var (
		all   []domain.Transaction
		start map[string]types.AttributeValue
	)
	for {
		out, err := r.client.Query(ctx, r.userQuery(userID, 0, start))
		if err != nil {
			return nil, err
		}
		page, err := decodeTransactions(out.Items)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return all, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (r *TransactionRepo) userQuery(userID string, limit int32, start map[string]types.AttributeValue) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserCreatedAt),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ScanIndexForward:          aws.Bool(false),
		ExclusiveStartKey:         start,
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

func decodeTransactions(items []map[string]types.AttributeValue) ([]domain.Transaction, error) {
	var recs []transactionRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
