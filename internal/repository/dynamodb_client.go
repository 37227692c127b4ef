package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const skBlob = "BLOB#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoBlobStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoBlobStore stores each blob as a single item keyed by PK=KEY#<key>.
type DynamoBlobStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoBlobStore creates a blob store backed by tableName.
func NewDynamoBlobStore(api dynamodbAPI, tableName string) (*DynamoBlobStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoBlobStore{api: api, tableName: tableName, now: time.Now}, nil
}

// blobPK returns the DynamoDB partition key for a blob.
func blobPK(key string) string {
	return "KEY#" + key
}

func (d *DynamoBlobStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: blobPK(key)},
		"SK": &types.AttributeValueMemberS{Value: skBlob},
	}
}

// Get reads the blob with a consistent read so a write is visible to the
// very next read-merge-write cycle.
func (d *DynamoBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("repository: Get %q: %w", key, err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, false, nil
	}
	v, ok := out.Item["data"]
	if !ok {
		return nil, false, fmt.Errorf("repository: Get %q: missing attribute %q", key, "data")
	}
	b, ok := v.(*types.AttributeValueMemberB)
	if !ok {
		return nil, false, fmt.Errorf("repository: Get %q: attribute %q is not binary", key, "data")
	}
	return b.Value, true, nil
}

// Set writes or replaces the whole blob.
func (d *DynamoBlobStore) Set(ctx context.Context, key string, value []byte) error {
	item := d.itemKey(key)
	item["data"] = &types.AttributeValueMemberB{Value: value}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: d.now().UTC().Format(time.RFC3339)}

	_, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Set %q: %w", key, err)
	}
	return nil
}

// Remove deletes the blob. Removing a missing key is not an error.
func (d *DynamoBlobStore) Remove(ctx context.Context, key string) error {
	_, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("repository: Remove %q: %w", key, err)
	}
	return nil
}
