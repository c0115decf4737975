package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
)

// S3API is the part of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the part of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSStore keeps snapshot bodies in S3 and a per-property index in
// DynamoDB: PK SNAPSHOT#<property>, SK <date>#<days>d. The SK sorts by
// date first, so one partition serves both lookups.
type AWSStore struct {
	dynamoDB  DynamoAPI
	s3Client  S3API
	tableName string
	bucket    string
	prefix    string
}

// IndexItem is one DynamoDB index row.
type IndexItem struct {
	PK        string  `dynamodbav:"PK"`
	SK        string  `dynamodbav:"SK"`
	Key       string  `dynamodbav:"S3Key"`
	Days      int     `dynamodbav:"Days"`
	Sessions  float64 `dynamodbav:"Sessions"`
	Timestamp string  `dynamodbav:"Timestamp"`
	TTL       int64   `dynamodbav:"TTL,omitempty"`
}

// snapshotTTL bounds how long index rows live.
const snapshotTTL = 400 * 24 * time.Hour

// NewAWSStore loads AWS config for the storage region and profile.
func NewAWSStore(ctx context.Context, cfg config.StorageConfig) (*AWSStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewAWSStoreWithClients(dynamodb.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewAWSStoreWithClients builds a store over existing clients.
func NewAWSStoreWithClients(db DynamoAPI, s3c S3API, table, bucket, prefix string) *AWSStore {
	return &AWSStore{dynamoDB: db, s3Client: s3c, tableName: table, bucket: bucket, prefix: prefix}
}

func partitionKey(propertyID string) string {
	return "SNAPSHOT#" + propertyID
}

func sortKey(snap *domain.Snapshot) string {
	return fmt.Sprintf("%s#%dd", snap.Date, snap.Days)
}

func (s *AWSStore) objectKey(snap *domain.Snapshot) string {
	return path.Join(s.prefix, snap.PropertyID, fmt.Sprintf("%dd", snap.Days), snap.Date+".json")
}

// Save uploads the body and then writes the index row.
func (s *AWSStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	key := s.objectKey(snap)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}

	item := IndexItem{
		PK:        partitionKey(snap.PropertyID),
		SK:        sortKey(snap),
		Key:       key,
		Days:      snap.Days,
		Sessions:  snap.Metrics["sessions"],
		Timestamp: snap.GeneratedAt.UTC().Format(time.RFC3339),
		TTL:       snap.GeneratedAt.Add(snapshotTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot for the property.
func (s *AWSStore) Latest(ctx context.Context, propertyID string) (*domain.Snapshot, error) {
	result, err := s.dynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partitionKey(propertyID)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}
	return s.first(ctx, propertyID, result.Items)
}

// Previous returns the newest days-long snapshot dated before before.
// Dates sort ahead of the window suffix, so "SK < before" excludes the
// before date itself.
func (s *AWSStore) Previous(ctx context.Context, propertyID string, days int, before string) (*domain.Snapshot, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK < :before"),
		FilterExpression:       aws.String("#days = :days"),
		ExpressionAttributeNames: map[string]string{
			"#days": "Days",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: partitionKey(propertyID)},
			":before": &types.AttributeValueMemberS{Value: before},
			":days":   &types.AttributeValueMemberN{Value: strconv.Itoa(days)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	// the filter applies per page, so an empty page may not be the end
	for {
		result, err := s.dynamoDB.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("querying DynamoDB: %w", err)
		}
		if len(result.Items) > 0 || len(result.LastEvaluatedKey) == 0 {
			return s.first(ctx, propertyID, result.Items)
		}
		in.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func (s *AWSStore) first(ctx context.Context, propertyID string, items []map[string]types.AttributeValue) (*domain.Snapshot, error) {
	if len(items) == 0 {
		return nil, notFound(propertyID)
	}
	var item IndexItem
	if err := attributevalue.UnmarshalMap(items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshaling index item: %w", err)
	}
	return s.getObject(ctx, item.Key)
}

func (s *AWSStore) getObject(ctx context.Context, key string) (*domain.Snapshot, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
	}
	return &snap, nil
}
