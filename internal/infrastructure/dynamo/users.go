package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/clearflow/clearflow-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// Email and username uniqueness is enforced with marker items in a separate
// uniques table, written in the same transaction as the user item. GSI
// lookups alone cannot guarantee uniqueness under concurrent signups; the
// conditional marker put is the authoritative guard.
type UserRepo struct {
	client       *dynamodb.Client
	tableName    string
	uniquesTable string
}

func NewUserRepo(client *dynamodb.Client, tableName, uniquesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniquesTable: uniquesTable}
}

func emailKey(email string) string   { return "email#" + email }
func usernameKey(name string) string { return "username#" + name }

// Create persists a new user together with its email/username uniqueness
// markers. Returns domain.ErrConflict if either marker already exists.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			r.uniquePut(emailKey(u.Email), u.UserID),
			r.uniquePut(usernameKey(u.Username), u.UserID),
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("email or username already registered: %w", domain.ErrConflict)
				}
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// HardDelete removes the user and its uniqueness markers. Used to roll back
// a signup whose verification email could not be delivered.
func (r *UserRepo) HardDelete(ctx context.Context, u *domain.User) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("user_id", u.UserID),
			}},
			r.uniqueDelete(emailKey(u.Email)),
			r.uniqueDelete(usernameKey(u.Username)),
		},
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SetPassword stores a new password hash and stamps the password epoch.
// This is the only write path for password mutation, so tokens issued before
// the change are always invalidated by the auth middleware's epoch check.
func (r *UserRepo) SetPassword(ctx context.Context, userID, hash string) error {
	return r.Update(ctx, userID, map[string]interface{}{
		"password_hash":       hash,
		"password_changed_at": time.Now().UTC(),
	})
}

// SetOTP stores a code with its paired expiry and purpose, overwriting and
// thereby invalidating any previous code for the user.
func (r *UserRepo) SetOTP(ctx context.Context, userID, code, purpose string, expiresAt time.Time) error {
	return r.Update(ctx, userID, map[string]interface{}{
		"otp_code":       code,
		"otp_expires_at": expiresAt,
		"otp_purpose":    purpose,
	})
}

// ClearOTP removes the stored code, conditioned on it still holding the
// expected value. The condition serializes concurrent verify calls for one
// identity: the second caller gets domain.ErrNotFound and the code is never
// consumed twice. Extra updates (verified flag, applied pending email) ride
// along in the same write.
func (r *UserRepo) ClearOTP(ctx context.Context, userID, expectedCode string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#otp"] = "otp_code"
	ue.Names["#otpExp"] = "otp_expires_at"
	ue.Names["#otpPurp"] = "otp_purpose"
	ue.Values[":expected"] = &types.AttributeValueMemberS{Value: expectedCode}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr + " REMOVE #otp, #otpExp, #otpPurp"),
		ConditionExpression:       aws.String("#otp = :expected"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("code already consumed: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// ApplyEmailChange swaps the user's email to newEmail, claiming the new
// uniqueness marker and releasing the old one in a single transaction.
func (r *UserRepo) ApplyEmailChange(ctx context.Context, u *domain.User, newEmail string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"email":      newEmail,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ue.Names["#pending"] = "pending_email"
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey("user_id", u.UserID),
				UpdateExpression:          aws.String(ue.Expr + " REMOVE #pending"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
			r.uniquePut(emailKey(newEmail), u.UserID),
			r.uniqueDelete(emailKey(u.Email)),
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("email already registered: %w", domain.ErrConflict)
				}
			}
		}
		return fmt.Errorf("apply email change: %w", err)
	}
	return nil
}

func (r *UserRepo) uniquePut(key, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.uniquesTable),
		Item: map[string]types.AttributeValue{
			"uniq_key": &types.AttributeValueMemberS{Value: key},
			"user_id":  &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("attribute_not_exists(uniq_key)"),
	}}
}

func (r *UserRepo) uniqueDelete(key string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(r.uniquesTable),
		Key:       strKey("uniq_key", key),
	}}
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
