package backend

import (
	"context"
	"fmt"

	"docstore/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoTable.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoTable is a MetadataTable backed by Amazon DynamoDB.
type DynamoTable struct {
	client DynamoAPI
}

// NewDynamoTable loads the default AWS configuration for region and returns
// a table client.
func NewDynamoTable(ctx context.Context, region string) (*DynamoTable, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewDynamoTableFromClient(dynamodb.NewFromConfig(cfg)), nil
}

// NewDynamoTableFromClient wraps an existing client.
func NewDynamoTableFromClient(client DynamoAPI) *DynamoTable {
	return &DynamoTable{client: client}
}

// ToAttributeValues converts an Item into DynamoDB attribute values.
func ToAttributeValues(item storage.Item) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for name, attr := range item {
		switch attr.Type {
		case storage.TypeString:
			out[name] = &types.AttributeValueMemberS{Value: attr.Value}
		case storage.TypeNumber:
			out[name] = &types.AttributeValueMemberN{Value: attr.Value}
		case storage.TypeBool:
			out[name] = &types.AttributeValueMemberBOOL{Value: attr.Value == "true"}
		default:
			return nil, fmt.Errorf("attribute %q has unknown type %q", name, attr.Type)
		}
	}
	return out, nil
}

// PutItem implements storage.MetadataTable. The put is unconditional.
func (t *DynamoTable) PutItem(ctx context.Context, table string, item storage.Item) (storage.Receipt, error) {
	values, err := ToAttributeValues(item)
	if err != nil {
		return nil, err
	}

	out, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      values,
	})
	if err != nil {
		return nil, fmt.Errorf("put item into %q: %w", table, err)
	}

	receipt := storage.Receipt{}
	if requestID, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok {
		receipt["RequestId"] = requestID
	}
	if out.ConsumedCapacity != nil {
		receipt["ConsumedCapacity"] = aws.ToFloat64(out.ConsumedCapacity.CapacityUnits)
	}
	return receipt, nil
}
