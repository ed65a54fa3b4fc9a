package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/oklog/ulid/v2"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/metrics"
)

const (
	backend = "dynamodb"

	// UserIndex is a GSI with user_identifier as partition key.
	UserIndex = "user_identifier-index"
)

// purchaseItem is the shape persisted in the purchases table.
type purchaseItem struct {
	PurchaseKey        string    `dynamodbav:"purchase_key"` // PK: see purchaseKey
	ID                 string    `dynamodbav:"id"`
	UserIdentifier     string    `dynamodbav:"user_identifier"`
	ContentID          string    `dynamodbav:"content_id"`
	PaymentReferenceID string    `dynamodbav:"payment_reference_id"`
	Amount             int64     `dynamodbav:"amount"`
	CreatedAt          time.Time `dynamodbav:"created_at"`
}

// purchaseKey length-prefixes the user so no pair of ids can collide.
func purchaseKey(user, content string) string {
	return strconv.Itoa(len(user)) + ":" + user + "#" + content
}

func (it purchaseItem) record() *model.PurchaseRecord {
	return &model.PurchaseRecord{
		ID:                 it.ID,
		UserIdentifier:     it.UserIdentifier,
		ContentID:          it.ContentID,
		PaymentReferenceID: it.PaymentReferenceID,
		Amount:             it.Amount,
		CreatedAt:          it.CreatedAt,
	}
}

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo stores one item per (user, content) pair.
type PurchaseRepo struct {
	client    DynamoDBAPI
	tableName string
}

func NewPurchaseRepo(client DynamoDBAPI, tableName string) *PurchaseRepo {
	return &PurchaseRepo{client: client, tableName: tableName}
}

func (r *PurchaseRepo) Exists(ctx context.Context, userIdentifier, contentID string) (bool, error) {
	out, err := r.get(ctx, userIdentifier, contentID, true)
	metrics.IncStoreOp(backend, "exists", err)
	if err != nil {
		return false, err
	}
	return len(out.Item) > 0, nil
}

// Insert is a conditional put on attribute_not_exists(purchase_key).
func (r *PurchaseRepo) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(purchaseItem{
		PurchaseKey:        purchaseKey(rec.UserIdentifier, rec.ContentID),
		ID:                 rec.ID,
		UserIdentifier:     rec.UserIdentifier,
		ContentID:          rec.ContentID,
		PaymentReferenceID: rec.PaymentReferenceID,
		Amount:             rec.Amount,
		CreatedAt:          rec.CreatedAt,
	})
	if err != nil {
		return model.InsertResult{}, fmt.Errorf("marshal purchase: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &r.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(purchase_key)"),
	})
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			metrics.IncStoreOp(backend, "insert", nil)
			existing, ferr := r.FindByUserAndContent(ctx, rec.UserIdentifier, rec.ContentID)
			if ferr != nil {
				existing = nil
			}
			return model.InsertResult{Status: model.AlreadyExists, Record: existing}, nil
		}
		metrics.IncStoreOp(backend, "insert", err)
		return model.InsertResult{}, unavailable("put item", err)
	}
	metrics.IncStoreOp(backend, "insert", nil)
	return model.InsertResult{Status: model.Inserted, Record: rec}, nil
}

func (r *PurchaseRepo) FindByUserAndContent(ctx context.Context, userIdentifier, contentID string) (*model.PurchaseRecord, error) {
	out, err := r.get(ctx, userIdentifier, contentID, false)
	metrics.IncStoreOp(backend, "find", err)
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrNotFound
	}
	var it purchaseItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal purchase: %w", err)
	}
	return it.record(), nil
}

// ListByUser queries UserIndex, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userIdentifier string) ([]*model.PurchaseRecord, error) {
	input := &dyn.QueryInput{
		TableName:              &r.tableName,
		IndexName:              awsString(UserIndex),
		KeyConditionExpression: awsString("user_identifier = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userIdentifier},
		},
	}

	var out []*model.PurchaseRecord
	for {
		page, err := r.client.Query(ctx, input)
		metrics.IncStoreOp(backend, "list", err)
		if err != nil {
			return nil, unavailable("query", err)
		}
		var items []purchaseItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal purchases: %w", err)
		}
		for _, it := range items {
			out = append(out, it.record())
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PurchaseRepo) get(ctx context.Context, user, content string, keysOnly bool) (*dyn.GetItemOutput, error) {
	input := &dyn.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"purchase_key": &types.AttributeValueMemberS{Value: purchaseKey(user, content)},
		},
		ConsistentRead: awsBool(true),
	}
	if keysOnly {
		input.ProjectionExpression = awsString("purchase_key")
	}
	out, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, unavailable("get item", err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: dynamodb %s: %v", domain.ErrStorageUnavailable, op, err)
}

// Helpers
func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
