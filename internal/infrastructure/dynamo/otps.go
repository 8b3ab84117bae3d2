package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// OTPRepo provides typed DynamoDB operations for the otps table.
// Records are queried through the email-index GSI and are only ever
// mutated by flipping is_used; deletion is left to the table TTL.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindValid returns the unused, unexpired record matching email + code +
// purpose, or ErrNotFound.
func (r *OTPRepo) FindValid(ctx context.Context, email, code, purpose string, now time.Time) (*domain.OTPRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-index"),
		KeyConditionExpression: aws.String("#e = :email"),
		FilterExpression:       aws.String("code = :code AND purpose = :purpose AND is_used = :f AND expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#e": "email",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email":   &types.AttributeValueMemberS{Value: email},
			":code":    &types.AttributeValueMemberS{Value: code},
			":purpose": &types.AttributeValueMemberS{Value: purpose},
			":f":       &types.AttributeValueMemberBOOL{Value: false},
			":now":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkUsed flips is_used on a single record. The conditional expression
// makes this a check-and-set: of two concurrent callers, exactly one
// succeeds and the other gets ErrConflict.
func (r *OTPRepo) MarkUsed(ctx context.Context, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("otp_id", otpID),
		UpdateExpression:    aws.String("SET is_used = :t"),
		ConditionExpression: aws.String("attribute_exists(otp_id) AND is_used = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("otp already used: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// MarkAllUsed marks every unused record for email (optionally narrowed to
// one purpose) as used. Losing a mark race to a concurrent consume is
// fine, the record ends up used either way, so conflicts are ignored.
func (r *OTPRepo) MarkAllUsed(ctx context.Context, email, purpose string) error {
	filter := "is_used = :f"
	values := map[string]types.AttributeValue{
		":email": &types.AttributeValueMemberS{Value: email},
		":f":     &types.AttributeValueMemberBOOL{Value: false},
	}
	if purpose != "" {
		filter += " AND purpose = :purpose"
		values[":purpose"] = &types.AttributeValueMemberS{Value: purpose}
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("#e = :email"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  map[string]string{"#e": "email"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return err
	}

	for _, item := range out.Items {
		var rec domain.OTPRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return err
		}
		if err := r.MarkUsed(ctx, rec.OTPID); err != nil && !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return nil
}
