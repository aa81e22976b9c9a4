package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/clearflow/clearflow-api/internal/domain"
)

// AnalyticsRepo provides typed DynamoDB operations for per-device analytics.
// One item per device, keyed by device_id.
type AnalyticsRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAnalyticsRepo(client *dynamodb.Client, tableName string) *AnalyticsRepo {
	return &AnalyticsRepo{client: client, tableName: tableName}
}

func (r *AnalyticsRepo) Put(ctx context.Context, a *domain.Analytics) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AnalyticsRepo) Get(ctx context.Context, deviceID string) (*domain.Analytics, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("device_id", deviceID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("analytics for device %s: %w", deviceID, domain.ErrNotFound)
	}
	var a domain.Analytics
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
