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

type watchlistRecord struct {
	UserID       string `dynamodbav:"user_id"`
	WatchlistID  string `dynamodbav:"watchlist_id"`
	FromCurrency string `dynamodbav:"from_currency"`
	ToCurrency   string `dynamodbav:"to_currency"`
	LastRate     string `dynamodbav:"last_rate"`
	RateSource   string `dynamodbav:"rate_source,omitempty"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

// WatchlistRepo stores followed pairs. PK: user_id, SK: watchlist_id.
type WatchlistRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewWatchlistRepo(client *dynamodb.Client, tableName string) *WatchlistRepo {
	return &WatchlistRepo{client: client, tableName: tableName}
}

func (r *WatchlistRepo) Put(ctx context.Context, it *domain.WatchlistItem) error {
	item, err := attributevalue.MarshalMap(watchlistRecord{
		UserID:       it.UserID,
		WatchlistID:  it.WatchlistID,
		FromCurrency: string(it.FromCurrency),
		ToCurrency:   string(it.ToCurrency),
		LastRate:     it.LastRate.String(),
		RateSource:   it.RateSource,
		CreatedAt:    formatTime(it.CreatedAt),
		UpdatedAt:    formatTime(it.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("marshal watchlist item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *WatchlistRepo) ListByUser(ctx context.Context, userID string) ([]domain.WatchlistItem, error) {
	items, err := queryByUser(ctx, r.client, r.tableName, userID)
	if err != nil {
		return nil, err
	}
	var recs []watchlistRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, err
	}
	out := make([]domain.WatchlistItem, 0, len(recs))
	for _, rec := range recs {
		it := domain.WatchlistItem{
			WatchlistID:  rec.WatchlistID,
			UserID:       rec.UserID,
			FromCurrency: domain.CurrencyCode(rec.FromCurrency),
			ToCurrency:   domain.CurrencyCode(rec.ToCurrency),
			RateSource:   rec.RateSource,
		}
		if it.LastRate, err = parseDecimal("last_rate", rec.LastRate); err != nil {
			return nil, err
		}
		if it.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
			return nil, err
		}
		if it.UpdatedAt, err = parseTime(rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *WatchlistRepo) Delete(ctx context.Context, userID, watchlistID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey(fieldUserID, userID, fieldWatchlistID, watchlistID),
		ConditionExpression: aws.String("attribute_exists(watchlist_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("watchlist item not found: %w", domain.ErrNotFound)
	}
	return err
}

// queryByUser pages through every item under partition key user_id.
func queryByUser(ctx context.Context, client *dynamodb.Client, table, userID string) ([]map[string]types.AttributeValue, error) {
	var (
		all   []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		out, err := client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			KeyConditionExpression:    aws.String("user_id = :u"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return all, nil
		}
		start = out.LastEvaluatedKey
	}
}
