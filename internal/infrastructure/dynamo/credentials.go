package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nexus-wa-bridge/internal/domain"
)

// MaxBlobSize keeps a credential item under DynamoDB's 400 KB item limit, with
// room left for the key and the timestamp attribute.
const MaxBlobSize = 400*1024 - 1024

// ErrBlobTooLarge is returned by Save when the snapshot cannot fit in one item.
// The device database grows with contacts and app state; switch to the file or
// redis backend when it happens.
var ErrBlobTooLarge = errors.New("credential blob exceeds the DynamoDB item limit")

// itemAPI is the subset of *dynamodb.Client the credential repo uses.
type itemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CredentialRepo stores the session credential blob as a single item keyed by the
// session identity.
type CredentialRepo struct {
	client    itemAPI
	tableName string
	sessionID string
}

func NewCredentialRepo(client itemAPI, tableName, sessionID string) *CredentialRepo {
	return &CredentialRepo{client: client, tableName: tableName, sessionID: sessionID}
}

// Load returns the stored blob, or nil when no session has been paired yet.
func (r *CredentialRepo) Load(ctx context.Context) ([]byte, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSessionID, r.sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get credentials: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec domain.CredentialRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}
	if len(rec.Blob) == 0 {
		return nil, nil
	}
	return rec.Blob, nil
}

// Save upserts the blob. Blobs over MaxBlobSize are rejected without a write.
func (r *CredentialRepo) Save(ctx context.Context, blob []byte) error {
	if len(blob) > MaxBlobSize {
		return fmt.Errorf("dynamo save credentials: %d bytes: %w", len(blob), ErrBlobTooLarge)
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldBlob:      blob,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldSessionID, r.sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("dynamo save credentials: %w", err)
	}
	return nil
}

// Wipe deletes the item. Deleting a missing item is not an error.
func (r *CredentialRepo) Wipe(ctx context.Context) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSessionID, r.sessionID),
	})
	if err != nil {
		return fmt.Errorf("dynamo wipe credentials: %w", err)
	}
	return nil
}
