package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/currency-exchange-api/internal/config"
)

const tableWaitTimeout = 2 * time.Minute

func attr(name string, t types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
}

func pkSchema(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

func pkSkSchema(pk, sk string) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
	}
}

// tableSpec is one table to create plus its optional TTL attribute.
type tableSpec struct {
	input   *dynamodb.CreateTableInput
	ttlAttr string
}

func hashTable(name, pk string, extra ...types.AttributeDefinition) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: append([]types.AttributeDefinition{attr(pk, types.ScalarAttributeTypeS)}, extra...),
		KeySchema:            pkSchema(pk),
	}
}

func rangeTable(name, pk, sk string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr(pk, types.ScalarAttributeTypeS),
			attr(sk, types.ScalarAttributeTypeS),
		},
		KeySchema: pkSkSchema(pk, sk),
	}
}

func tableSpecs(tables config.DynamoTables) []tableSpec {
	users := hashTable(tables.Users, fieldUserID,
		attr(fieldEmail, types.ScalarAttributeTypeS),
		attr(fieldPhone, types.ScalarAttributeTypeS),
	)
	users.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexEmail, fieldEmail, ""),
		gsi(indexPhone, fieldPhone, ""),
	}

	transactions := hashTable(tables.Transactions, fieldTransactionID,
		attr(fieldUserID, types.ScalarAttributeTypeS),
		attr(fieldCreatedAt, types.ScalarAttributeTypeS),
	)
	transactions.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexUserCreatedAt, fieldUserID, fieldCreatedAt),
	}

	return []tableSpec{
		{input: users},
		{input: hashTable(tables.Currencies, fieldCode)},
		{input: transactions},
		{input: rangeTable(tables.Watchlists, fieldUserID, fieldWatchlistID)},
		{input: rangeTable(tables.RateAlerts, fieldUserID, fieldPairKey)},
		{input: hashTable(tables.Reservations, fieldReservationID), ttlAttr: fieldExpiresAt},
	}
}

// Bootstrap creates every table and GSI that does not exist yet, waiting for
// new tables to turn ACTIVE before enabling TTL. Existing tables are left
// alone. Failures are collected; one bad table does not stop the rest.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) error {
	var errs []error
	for _, spec := range tableSpecs(tables) {
		name := aws.ToString(spec.input.TableName)
		created, err := createTable(ctx, client, spec.input)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if spec.ttlAttr == "" {
			continue
		}
		if created {
			waiter := dynamodb.NewTableExistsWaiter(client)
			if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, tableWaitTimeout); err != nil {
				errs = append(errs, fmt.Errorf("wait for table %s: %w", name, err))
				continue
			}
		}
		if err := enableTTL(ctx, client, name, spec.ttlAttr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) (bool, error) {
	name := aws.ToString(input.TableName)
	if _, err := client.CreateTable(ctx, input); err != nil {
		var riue *types.ResourceInUseException
		if errors.As(err, &riue) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", name, err)
	}
	slog.Info("created table", "table", name)
	return true, nil
}

// enableTTL is idempotent: DynamoDB rejects re-enabling with a
// ValidationException, which is treated as already done.
func enableTTL(ctx context.Context, client *dynamodb.Client, tableName, ttlAttr string) error {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enable ttl on %s: %w", tableName, err)
	}
	return nil
}
