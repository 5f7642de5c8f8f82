package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priomatrix-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SyncAdapter implements the persistence sync adapter on DynamoDB.
// The updatedAt precondition maps onto a conditional write: a failed
// condition is a Conflict, anything else is a TransientFailure the engine
// may retry.
type SyncAdapter struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSyncAdapter creates a DynamoDB-backed sync adapter
func NewSyncAdapter(client *dynamodb.Client, tableName string, logger *zap.Logger) *SyncAdapter {
	return &SyncAdapter{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// cardItem is the DynamoDB item structure for an idea card
type cardItem struct {
	PK          string  `dynamodbav:"PK"` // PROJECT#<projectID>
	SK          string  `dynamodbav:"SK"` // CARD#<cardID>
	EntityType  string  `dynamodbav:"EntityType"`
	CardID      string  `dynamodbav:"CardID"`
	ProjectID   string  `dynamodbav:"ProjectID"`
	Content     string  `dynamodbav:"Content"`
	Details     string  `dynamodbav:"Details"`
	X           float64 `dynamodbav:"X"`
	Y           float64 `dynamodbav:"Y"`
	Priority    string  `dynamodbav:"Priority"`
	IsCollapsed bool    `dynamodbav:"IsCollapsed"`
	LockedBy    string  `dynamodbav:"LockedBy,omitempty"`
	CreatedAt   string  `dynamodbav:"CreatedAt"` // RFC3339Nano
	UpdatedAt   string  `dynamodbav:"UpdatedAt"` // RFC3339Nano
}

func projectKey(projectID string) string { return "PROJECT#" + projectID }
func cardKey(cardID string) string       { return "CARD#" + cardID }

// SaveCommit persists a drag commit with a conditional write on UpdatedAt
func (a *SyncAdapter) SaveCommit(ctx context.Context, commit ports.CardCommit) (ports.SaveResult, error) {
	newUpdatedAt := time.Now()
	if !newUpdatedAt.After(commit.PriorUpdatedAt) {
		newUpdatedAt = commit.PriorUpdatedAt.Add(time.Nanosecond)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectKey(commit.ProjectID)},
			"SK": &types.AttributeValueMemberS{Value: cardKey(commit.CardID)},
		},
		UpdateExpression:    aws.String("SET #x = :x, #y = :y, #priority = :priority, #updatedAt = :updatedAt"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #updatedAt = :prior"),
		ExpressionAttributeNames: map[string]string{
			"#x":         "X",
			"#y":         "Y",
			"#priority":  "Priority",
			"#updatedAt": "UpdatedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":x":         &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", commit.X)},
			":y":         &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", commit.Y)},
			":priority":  &types.AttributeValueMemberS{Value: commit.Priority},
			":updatedAt": &types.AttributeValueMemberS{Value: newUpdatedAt.Format(time.RFC3339Nano)},
			":prior":     &types.AttributeValueMemberS{Value: commit.PriorUpdatedAt.Format(time.RFC3339Nano)},
		},
	}

	_, err := a.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			a.logger.Debug("commit conflict: card changed since drag began",
				zap.String("cardID", commit.CardID),
				zap.Time("prior", commit.PriorUpdatedAt),
			)
			return ports.SaveResult{Status: ports.SaveConflict}, nil
		}
		return ports.SaveResult{
			Status: ports.SaveTransientFailure,
			Err:    fmt.Errorf("failed to save commit: %w", err),
		}, nil
	}

	return ports.SaveResult{Status: ports.SaveCommitted, NewUpdatedAt: newUpdatedAt}, nil
}

// PutCard persists a full card record
func (a *SyncAdapter) PutCard(ctx context.Context, snapshot ports.CardSnapshot) error {
	item, err := attributevalue.MarshalMap(cardItem{
		PK:          projectKey(snapshot.ProjectID),
		SK:          cardKey(snapshot.ID),
		EntityType:  "IDEA_CARD",
		CardID:      snapshot.ID,
		ProjectID:   snapshot.ProjectID,
		Content:     snapshot.Content,
		Details:     snapshot.Details,
		X:           snapshot.X,
		Y:           snapshot.Y,
		Priority:    snapshot.Priority,
		IsCollapsed: snapshot.IsCollapsed,
		LockedBy:    snapshot.LockedBy,
		CreatedAt:   snapshot.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   snapshot.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal card item: %w", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put card: %w", err)
	}

	return nil
}

// DeleteCard removes a card record
func (a *SyncAdapter) DeleteCard(ctx context.Context, projectID, cardID string) error {
	_, err := a.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectKey(projectID)},
			"SK": &types.AttributeValueMemberS{Value: cardKey(cardID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// ListProject loads every card record in a project, for warm-up on boot
func (a *SyncAdapter) ListProject(ctx context.Context, projectID string) ([]ports.CardSnapshot, error) {
	out, err := a.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: projectKey(projectID)},
			":sk": &types.AttributeValueMemberS{Value: "CARD#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query project cards: %w", err)
	}

	snapshots := make([]ports.CardSnapshot, 0, len(out.Items))
	for _, raw := range out.Items {
		var item cardItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			a.logger.Warn("skipping unreadable card item", zap.Error(err))
			continue
		}
		snapshot, err := item.toSnapshot()
		if err != nil {
			a.logger.Warn("skipping card item with bad timestamps",
				zap.String("cardID", item.CardID),
				zap.Error(err),
			)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (i cardItem) toSnapshot() (ports.CardSnapshot, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return ports.CardSnapshot{}, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if err != nil {
		return ports.CardSnapshot{}, err
	}

	return ports.CardSnapshot{
		ID:          i.CardID,
		ProjectID:   i.ProjectID,
		Content:     i.Content,
		Details:     i.Details,
		X:           i.X,
		Y:           i.Y,
		Priority:    i.Priority,
		IsCollapsed: i.IsCollapsed,
		LockedBy:    i.LockedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
