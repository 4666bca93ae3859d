package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB item attribute names. The table's partition key must be the
// string attribute "data_key".
const (
	dynamoKeyAttr   = "data_key"
	dynamoValueAttr = "data_value"
)

// DynamoDBOptions configures a DynamoDBStore.
type DynamoDBOptions struct {
	Table    string
	Region   string
	Endpoint string
	// AccessKeyID and SecretAccessKey select static credentials; when empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// DynamoDBStore keeps one item per entry in an existing table.
type DynamoDBStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoDBStore loads AWS configuration and creates the client. The table
// is not created or checked.
func NewDynamoDBStore(ctx context.Context, opts DynamoDBOptions) (*DynamoDBStore, error) {
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		return nil, fmt.Errorf("dynamodb table is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &DynamoDBStore{client: client, table: table}, nil
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKeyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

// Get returns the value under key, or nil when no item exists.
func (s *DynamoDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	attr, ok := out.Item[dynamoValueAttr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, nil
	}
	return []byte(attr.Value), nil
}

// Set overwrites the item for key.
func (s *DynamoDBStore) Set(ctx context.Context, key string, value []byte) error {
	item := dynamoKey(key)
	item[dynamoValueAttr] = &types.AttributeValueMemberS{Value: string(value)}
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client is stateless.
func (s *DynamoDBStore) Close() error { return nil }
