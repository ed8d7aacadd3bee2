package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/currency-exchange-api/internal/domain"
)

// reservationRecord keeps expires_at as epoch seconds so DynamoDB TTL can
// reap expired rows.
type reservationRecord struct {
	ReservationID string `dynamodbav:"reservation_id"`
	UserID        string `dynamodbav:"user_id"`
	FromCurrency  string `dynamodbav:"from_currency"`
	ToCurrency    string `dynamodbav:"to_currency"`
	Amount        string `dynamodbav:"amount"`
	Rate          string `dynamodbav:"reserved_rate"`
	CreatedAt     string `dynamodbav:"created_at"`
	ExpiresAt     int64  `dynamodbav:"expires_at"`
	Used          bool   `dynamodbav:"used"`
}

// ReservationRepo stores rate reservations. PK: reservation_id; TTL on expires_at.
type ReservationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewReservationRepo(client *dynamodb.Client, tableName string) *ReservationRepo {
	return &ReservationRepo{client: client, tableName: tableName}
}

func (r *ReservationRepo) Put(ctx context.Context, res *domain.RateReservation) error {
	item, err := attributevalue.MarshalMap(reservationRecord{
		ReservationID: res.ReservationID,
		UserID:        res.UserID,
		FromCurrency:  string(res.FromCurrency),
		ToCurrency:    string(res.ToCurrency),
		Amount:        res.Amount.String(),
		Rate:          res.Rate.String(),
		CreatedAt:     formatTime(res.CreatedAt),
		ExpiresAt:     res.ExpiresAt.Unix(),
		Used:          res.Used,
	})
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns the stored row even when expired; TTL deletion is lazy.
func (r *ReservationRepo) Get(ctx context.Context, reservationID string) (*domain.RateReservation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldReservationID, reservationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("reservation not found: %w", domain.ErrNotFound)
	}
	var rec reservationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	res := &domain.RateReservation{
		ReservationID: rec.ReservationID,
		UserID:        rec.UserID,
		FromCurrency:  domain.CurrencyCode(rec.FromCurrency),
		ToCurrency:    domain.CurrencyCode(rec.ToCurrency),
		ExpiresAt:     time.Unix(rec.ExpiresAt, 0).UTC(),
		Used:          rec.Used,
	}
	if res.Amount, err = parseDecimal("amount", rec.Amount); err != nil {
		return nil, err
	}
	if res.Rate, err = parseDecimal("reserved_rate", rec.Rate); err != nil {
		return nil, err
	}
	if res.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkUsed flips used to true only if it is still false, so two exchanges
// cannot redeem the same reservation.
func (r *ReservationRepo) MarkUsed(ctx context.Context, reservationID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldReservationID, reservationID),
		UpdateExpression:    aws.String("SET #u = :t"),
		ConditionExpression: aws.String("attribute_exists(reservation_id) AND #u = :f"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldUsed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("reservation %s already used: %w", reservationID, domain.ErrConflict)
	}
	return err
}
