package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/currency-exchange-api/internal/domain"
)

type rateAlertRecord struct {
	UserID       string `dynamodbav:"user_id"`
	Pair         string `dynamodbav:"pair"`
	FromCurrency string `dynamodbav:"from_currency"`
	ToCurrency   string `dynamodbav:"to_currency"`
	Threshold    string `dynamodbav:"threshold_percent"`
	BaselineRate string `dynamodbav:"baseline_rate"`
	CreatedAt    string `dynamodbav:"created_at"`
}

// RateAlertRepo stores one alert per user and pair. PK: user_id, SK: pair ("USD_EUR").
type RateAlertRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRateAlertRepo(client *dynamodb.Client, tableName string) *RateAlertRepo {
	return &RateAlertRepo{client: client, tableName: tableName}
}

func (r *RateAlertRepo) Put(ctx context.Context, a *domain.RateAlert) error {
	pair := domain.Pair{From: a.FromCurrency, To: a.ToCurrency}
	item, err := attributevalue.MarshalMap(rateAlertRecord{
		UserID:       a.UserID,
		Pair:         pair.Key(),
		FromCurrency: string(a.FromCurrency),
		ToCurrency:   string(a.ToCurrency),
		Threshold:    a.ThresholdPercent.String(),
		BaselineRate: a.BaselineRate.String(),
		CreatedAt:    formatTime(a.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("marshal rate alert: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RateAlertRepo) ListByUser(ctx context.Context, userID string) ([]domain.RateAlert, error) {
	items, err := queryByUser(ctx, r.client, r.tableName, userID)
	if err != nil {
		return nil, err
	}
	var recs []rateAlertRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, err
	}
	out := make([]domain.RateAlert, 0, len(recs))
	for _, rec := range recs {
		a := domain.RateAlert{
			UserID:       rec.UserID,
			FromCurrency: domain.CurrencyCode(rec.FromCurrency),
			ToCurrency:   domain.CurrencyCode(rec.ToCurrency),
		}
		if a.ThresholdPercent, err = parseDecimal("threshold_percent", rec.Threshold); err != nil {
			return nil, err
		}
		if a.BaselineRate, err = parseDecimal("baseline_rate", rec.BaselineRate); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *RateAlertRepo) Delete(ctx context.Context, userID string, pair domain.Pair) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey(fieldUserID, userID, fieldPairKey, pair.Key()),
		ConditionExpression: aws.String("attribute_exists(pair)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("alert for %s not found: %w", pair, domain.ErrNotFound)
	}
	return err
}
