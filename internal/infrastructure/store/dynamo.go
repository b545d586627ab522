package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront/internal/domain/order"
)

// DynamoOrderStore keeps one item per order. Optimistic locking uses a
// PutItem ConditionExpression on the version attribute.
type DynamoOrderStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoOrder is the DynamoDB item shape. The full order state is kept
// as a JSON blob; status attributes are duplicated at the top level so
// List can filter without decoding every item.
type dynamoOrder struct {
	OrderNumber   string `dynamodbav:"order_number"`
	Status        string `dynamodbav:"status"`
	PaymentStatus string `dynamodbav:"payment_status"`
	Email         string `dynamodbav:"email"`
	Version       int    `dynamodbav:"version"`
	State         string `dynamodbav:"state"`
}

func NewDynamoOrderStore(client *dynamodb.Client, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

func (s *DynamoOrderStore) marshalItem(o *order.Order) (map[string]types.AttributeValue, error) {
	state, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	item := dynamoOrder{
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Email:         o.ShippingAddress.Email,
		Version:       o.Version,
		State:         string(state),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order item: %w", err)
	}
	return av, nil
}

func (s *DynamoOrderStore) Insert(ctx context.Context, o *order.Order) error {
	av, err := s.marshalItem(o)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(order_number)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return order.ErrDuplicateOrderNumber
	}
	return err
}

func (s *DynamoOrderStore) Find(ctx context.Context, orderNumber string) (*order.Order, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"order_number": &types.AttributeValueMemberS{Value: orderNumber},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, err
	}
	if out.Item == nil {
		return nil, false, nil
	}
	o, err := unmarshalDynamoOrder(out.Item)
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// Commit overwrites the item only while the stored version matches what
// the writer read.
func (s *DynamoOrderStore) Commit(ctx context.Context, o *order.Order, expectedVersion int) error {
	o.Version = expectedVersion + 1
	av, err := s.marshalItem(o)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(order_number) AND version = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		o.Version = expectedVersion
		_, found, ferr := s.Find(ctx, o.OrderNumber)
		if ferr != nil {
			return ferr
		}
		if !found {
			return order.ErrOrderNotFound
		}
		return order.ErrConflict
	}
	if err != nil {
		o.Version = expectedVersion
	}
	return err
}

func (s *DynamoOrderStore) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.tableName)}

	var conds []string
	values := map[string]types.AttributeValue{}
	names := map[string]string{}
	if f.Status != "" {
		conds = append(conds, "#st = :status")
		names["#st"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(f.Status)}
	}
	if f.PaymentStatus != "" {
		conds = append(conds, "payment_status = :payment_status")
		values[":payment_status"] = &types.AttributeValueMemberS{Value: string(f.PaymentStatus)}
	}
	if f.Email != "" {
		conds = append(conds, "email = :email")
		values[":email"] = &types.AttributeValueMemberS{Value: f.Email}
	}
	if len(conds) > 0 {
		expr := conds[0]
		for _, c := range conds[1:] {
			expr += " AND " + c
		}
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeValues = values
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
	}

	var orders []*order.Order
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			o, err := unmarshalDynamoOrder(item)
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func unmarshalDynamoOrder(item map[string]types.AttributeValue) (*order.Order, error) {
	var rec dynamoOrder
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order item: %w", err)
	}
	var o order.Order
	if err := json.Unmarshal([]byte(rec.State), &o); err != nil {
		return nil, err
	}
	o.Version = rec.Version
	return &o, nil
}
