package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/clearflow/clearflow-api/internal/domain"
)

// ReadingRepo provides typed DynamoDB operations for the telemetry table.
// PK: device_id, SK: reading_id (ULID — sorts by creation time).
type ReadingRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewReadingRepo(client *dynamodb.Client, tableName string) *ReadingRepo {
	return &ReadingRepo{client: client, tableName: tableName}
}

func (r *ReadingRepo) Put(ctx context.Context, reading *domain.Reading) error {
	item, err := attributevalue.MarshalMap(reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByDevice returns up to limit readings for the device, newest first.
func (r *ReadingRepo) ListByDevice(ctx context.Context, deviceID string, limit int32) ([]domain.Reading, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("device_id = :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":d": &types.AttributeValueMemberS{Value: deviceID}},
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var readings []domain.Reading
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}
