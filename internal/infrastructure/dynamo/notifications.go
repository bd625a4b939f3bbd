package dynamo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gallery-live/internal/domain"
)

// NotificationAPI is the part of *dynamodb.Client the notification repo uses.
type NotificationAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    NotificationAPI
	tableName string
}

func NewNotificationRepo(client NotificationAPI, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// Put writes a new notification. An existing id is a conflict, never an overwrite.
func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	item[attrCreatedAt] = &types.AttributeValueMemberS{Value: sortableTime(n.CreatedAt)}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrNotificationID,
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrNotificationID, notificationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListUnread queries the recipient GSI and filters for is_read = false.
func (r *NotificationRepo) ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	input := r.recipientQuery(recipientID, true)
	input.FilterExpression = aws.String("#r = :false")
	input.ExpressionAttributeNames = map[string]string{"#r": attrIsRead}
	input.ExpressionAttributeValues[":false"] = &types.AttributeValueMemberBOOL{Value: false}

	out, err := r.queryAll(ctx, input, 0)
	if err != nil {
		return nil, err
	}
	sortAscending(out)
	return out, nil
}

// ListByRecipient reads the newest limit records and returns them oldest first.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	input := r.recipientQuery(recipientID, false)
	input.Limit = aws.Int32(int32(limit))

	out, err := r.queryAll(ctx, input, limit)
	if err != nil {
		return nil, err
	}
	sortAscending(out)
	return out, nil
}

// MarkAsRead sets is_read. The condition only guards existence, so repeating it is harmless.
func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID string) error {
	ue, err := buildUpdateExpr(map[string]any{attrIsRead: true})
	if err != nil {
		return err
	}
	ue.Names["#id"] = attrNotificationID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrNotificationID, notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return err
}

// MarkAllAsRead flips every unread record of the recipient. Records flipped
// concurrently by another request are not counted twice.
func (r *NotificationRepo) MarkAllAsRead(ctx context.Context, recipientID string) (int, error) {
	unread, err := r.ListUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	ue, err := buildUpdateExpr(map[string]any{attrIsRead: true})
	if err != nil {
		return 0, err
	}
	ue.Values[":false"] = &types.AttributeValueMemberBOOL{Value: false}

	changed := 0
	for _, n := range unread {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey(attrNotificationID, n.ID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("#f0 = :false"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		})
		switch {
		case err == nil:
			changed++
		case isConditionFailed(err):
		default:
			return changed, fmt.Errorf("mark notification %s read: %w", n.ID, err)
		}
	}
	return changed, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	input := r.recipientQuery(recipientID, true)
	input.Select = types.SelectCount
	input.FilterExpression = aws.String("#r = :false")
	input.ExpressionAttributeNames = map[string]string{"#r": attrIsRead}
	input.ExpressionAttributeValues[":false"] = &types.AttributeValueMemberBOOL{Value: false}

	total := 0
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

func (r *NotificationRepo) recipientQuery(recipientID string, ascending bool) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(recipientIndex),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
		ScanIndexForward: aws.Bool(ascending),
	}
}

// queryAll follows pagination until max items were read, or to the end when max is 0.
func (r *NotificationRepo) queryAll(ctx context.Context, input *dynamodb.QueryInput, max int) ([]domain.Notification, error) {
	var out []domain.Notification
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if max > 0 && len(out) >= max {
			return out[:max], nil
		}
	}
	return out, nil
}

// sortAscending orders by created_at, ties broken by id. GSI order is
// unspecified for equal sort keys.
func sortAscending(ns []domain.Notification) {
	slices.SortFunc(ns, func(a, b domain.Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
