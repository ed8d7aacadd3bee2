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

// CurrencyRepo stores the currency catalogue keyed by code.
type CurrencyRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCurrencyRepo(client *dynamodb.Client, tableName string) *CurrencyRepo {
	return &CurrencyRepo{client: client, tableName: tableName}
}

func (r *CurrencyRepo) Create(ctx context.Context, c *domain.Currency) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal currency: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(code)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("currency %s exists: %w", c.Code, domain.ErrConflict)
	}
	return err
}

func (r *CurrencyRepo) Get(ctx context.Context, code domain.CurrencyCode) (*domain.Currency, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldCode, string(code)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("currency %s not found: %w", code, domain.ErrNotFound)
	}
	var c domain.Currency
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List scans the whole table; the catalogue is small.
func (r *CurrencyRepo) List(ctx context.Context) ([]domain.Currency, error) {
	var (
		all   []domain.Currency
		start map[string]types.AttributeValue
	)
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Currency
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return all, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (r *CurrencyRepo) Update(ctx context.Context, code domain.CurrencyCode, updates map[string]interface{}) error {
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldCode, string(code)),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(code)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("currency %s not found: %w", code, domain.ErrNotFound)
	}
	return err
}
