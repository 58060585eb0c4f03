package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hayashida/spotbot/pkg/logging"
)

const defaultRecordTTL = 24 * time.Hour

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoRepository persists conversation records to DynamoDB. Conditional
// expressions provide the per-user write atomicity: creates fail when a record
// exists, answer mutations fail when updatedAt moved since the read.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	logger    *logging.Logger
	tracer    trace.Tracer
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB client.
func NewDynamoRepository(client dynamoAPI, tableName string, ttl time.Duration, logger *logging.Logger) *DynamoRepository {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = defaultRecordTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoRepository{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
		tracer:    otel.Tracer("spotbot.internal.conversation.dynamo"),
	}
}

// Create inserts a new record, stamping timestamps and an item TTL so
// abandoned conversations expire on their own.
func (r *DynamoRepository) Create(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("conversation: record cannot be nil")
	}
	ctx, span := r.tracer.Start(ctx, "conversation.create_record")
	defer span.End()

	now := time.Now().UTC()
	rec.CreatedAt = now.Format(time.RFC3339Nano)
	rec.UpdatedAt = rec.CreatedAt
	if rec.Answers == nil {
		rec.Answers = map[string]string{}
	}
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = now.Add(r.ttl).Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return ErrConflict
		}
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist record: %w", err)
	}
	return nil
}

// GetByUserID fetches the user's record.
func (r *DynamoRepository) GetByUserID(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, errors.New("conversation: userID required")
	}
	ctx, span := r.tracer.Start(ctx, "conversation.get_record")
	defer span.End()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to fetch record: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode record: %w", err)
	}
	return &rec, nil
}

// SetAnswer stores one answer property and advances the status pointer in a
// single conditional update.
func (r *DynamoRepository) SetAnswer(ctx context.Context, userID string, mut AnswerMutation) error {
	if userID == "" {
		return errors.New("conversation: userID required")
	}
	if mut.Property == "" {
		return errors.New("conversation: answer property required")
	}
	ctx, span := r.tracer.Start(ctx, "conversation.set_answer")
	defer span.End()

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String("SET #answers.#prop = :value, #status = :next, #updated = :now"),
		ExpressionAttributeNames: map[string]string{
			"#answers": "answers",
			"#prop":    mut.Property,
			"#status":  "currentStatus",
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value":    &types.AttributeValueMemberS{Value: mut.Value},
			":next":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", mut.NextStatus)},
			":now":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":expected": &types.AttributeValueMemberS{Value: mut.ExpectedUpdatedAt},
		},
		ConditionExpression: aws.String("attribute_exists(userId) AND #updated = :expected"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return ErrConflict
		}
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to update record for %s: %w", userID, err)
	}
	return nil
}

// Delete removes the user's record; absent records are a successful no-op.
func (r *DynamoRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("conversation: userID required")
	}
	ctx, span := r.tracer.Start(ctx, "conversation.delete_record")
	defer span.End()

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete record for %s: %w", userID, err)
	}
	return nil
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
