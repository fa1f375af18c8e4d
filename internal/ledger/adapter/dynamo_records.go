package adapter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/dynamo"
	"github.com/finbase/finance-ledger/internal/ledger/app"
)

// recordDynamoDB is a narrow, consumer-defined interface for DynamoDB
// operations required by the record store.
type recordDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
}

// recordItem is the DynamoDB item shape for the financial records table.
type recordItem struct {
	RecordID      string  `dynamodbav:"record_id"`
	AccountID     string  `dynamodbav:"account_id"`
	Type          string  `dynamodbav:"record_type"`
	Category      string  `dynamodbav:"category"`
	Amount        float64 `dynamodbav:"amount"`
	PaymentMethod string  `dynamodbav:"payment_method"`
	Description   string  `dynamodbav:"description"`
	DueDate       string  `dynamodbav:"due_date"`
	SettledDate   string  `dynamodbav:"settled_date"`
	Status        string  `dynamodbav:"status"`
	Note          string  `dynamodbav:"note"`
	Active        bool    `dynamodbav:"active"`
	CreatedAt     string  `dynamodbav:"created_at"`
	UpdatedAt     string  `dynamodbav:"updated_at"`
}

// RecordStore persists financial records in DynamoDB.
type RecordStore struct {
	db        recordDynamoDB
	tableName string
	indexName string
}

// NewRecordStore creates a RecordStore backed by the given DynamoDB client.
func NewRecordStore(db recordDynamoDB, tableName string) *RecordStore {
	return &RecordStore{
		db:        db,
		tableName: tableName,
		indexName: "account_id-index",
	}
}

// Create writes a new financial record with a condition that the record ID
// is not already taken.
func (s *RecordStore) Create(ctx context.Context, record app.Record) error {
	ctx, span := tracer.Start(ctx, "dynamo.records.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	item := recordItem(record)

	av, err := dynamo.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("record store: marshal item: %w", err)
	}

	condExpr := "attribute_not_exists(record_id)"

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("record store: create: %w", domain.ErrAlreadyExists)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("record store: create: %w", err)
	}

	return nil
}

// GetByID retrieves a record by ID using a strongly consistent read.
// Returns domain.ErrNotFound when no record exists for the given ID.
func (s *RecordStore) GetByID(ctx context.Context, recordID string) (*app.Record, error) {
	ctx, span := tracer.Start(ctx, "dynamo.records.get_by_id")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"record_id": &dynamo.AttributeValueMemberS{Value: recordID},
		},
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("record store: get by id: %w", err)
	}

	if out.Item == nil {
		return nil, fmt.Errorf("record store: get by id: %w", domain.ErrNotFound)
	}

	var item recordItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("record store: unmarshal record: %w", err)
	}

	record := app.Record(item)
	return &record, nil
}

// ListByAccount returns the active records belonging to the given account,
// querying the account_id-index GSI and filtering out deactivated records
// server-side. Offset/limit windowing is the caller's concern.
func (s *RecordStore) ListByAccount(ctx context.Context, accountID string) ([]app.Record, error) {
	ctx, span := tracer.Start(ctx, "dynamo.records.list_by_account")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "Query"),
	)

	expr, err := dynamo.NewExpressionBuilder().
		WithKeyCondition(dynamo.ExprKeyEqual(dynamo.ExprKey("account_id"), dynamo.ExprValue(accountID))).
		WithFilter(dynamo.ExprName("active").Equal(dynamo.ExprValue(true))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("record store: build list expression: %w", err)
	}

	var records []app.Record
	var startKey map[string]dynamo.AttributeValue

	for {
		out, err := s.db.Query(ctx, &dynamo.QueryInput{
			TableName:                 &s.tableName,
			IndexName:                 &s.indexName,
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("record store: list by account query: %w", err)
		}

		var items []recordItem
		if err := dynamo.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("record store: unmarshal query page: %w", err)
		}
		for _, item := range items {
			records = append(records, app.Record(item))
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return records, nil
}

// Update overwrites the mutable fields of an active record and returns the
// stored state after the write. The condition restricts the update to
// records that exist and are still active; a miss on either maps to
// domain.ErrNotFound (deactivated records are invisible to updates).
func (s *RecordStore) Update(ctx context.Context, record app.Record) (*app.Record, error) {
	ctx, span := tracer.Start(ctx, "dynamo.records.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "UpdateItem"),
	)

	update := dynamo.ExprSet(dynamo.ExprName("record_type"), dynamo.ExprValue(record.Type)).
		Set(dynamo.ExprName("category"), dynamo.ExprValue(record.Category)).
		Set(dynamo.ExprName("amount"), dynamo.ExprValue(record.Amount)).
		Set(dynamo.ExprName("payment_method"), dynamo.ExprValue(record.PaymentMethod)).
		Set(dynamo.ExprName("description"), dynamo.ExprValue(record.Description)).
		Set(dynamo.ExprName("due_date"), dynamo.ExprValue(record.DueDate)).
		Set(dynamo.ExprName("settled_date"), dynamo.ExprValue(record.SettledDate)).
		Set(dynamo.ExprName("status"), dynamo.ExprValue(record.Status)).
		Set(dynamo.ExprName("note"), dynamo.ExprValue(record.Note)).
		Set(dynamo.ExprName("updated_at"), dynamo.ExprValue(record.UpdatedAt))

	cond := dynamo.ExprAttributeExists(dynamo.ExprName("record_id")).
		And(dynamo.ExprName("active").Equal(dynamo.ExprValue(true)))

	expr, err := dynamo.NewExpressionBuilder().
		WithUpdate(update).
		WithCondition(cond).
		Build()
	if err != nil {
		return nil, fmt.Errorf("record store: build update expression: %w", err)
	}

	out, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"record_id": &dynamo.AttributeValueMemberS{Value: record.RecordID},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              dynamo.ReturnValueAllNew,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("record store: update: %w", domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("record store: update: %w", err)
	}

	var item recordItem
	if err := dynamo.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("record store: unmarshal updated record: %w", err)
	}

	updated := app.Record(item)
	return &updated, nil
}

// Deactivate soft-deletes a record: sets active=false and bumps updated_at.
// The condition restricts the write to records that exist and are still
// active, so a second deactivation maps to domain.ErrNotFound.
func (s *RecordStore) Deactivate(ctx context.Context, recordID, updatedAt string) (*app.Record, error) {
	ctx, span := tracer.Start(ctx, "dynamo.records.deactivate")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "UpdateItem"),
	)

	update := dynamo.ExprSet(dynamo.ExprName("active"), dynamo.ExprValue(false)).
		Set(dynamo.ExprName("updated_at"), dynamo.ExprValue(updatedAt))

	cond := dynamo.ExprAttributeExists(dynamo.ExprName("record_id")).
		And(dynamo.ExprName("active").Equal(dynamo.ExprValue(true)))

	expr, err := dynamo.NewExpressionBuilder().
		WithUpdate(update).
		WithCondition(cond).
		Build()
	if err != nil {
		return nil, fmt.Errorf("record store: build deactivate expression: %w", err)
	}

	out, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"record_id": &dynamo.AttributeValueMemberS{Value: recordID},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              dynamo.ReturnValueAllNew,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("record store: deactivate: %w", domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("record store: deactivate: %w", err)
	}

	var item recordItem
	if err := dynamo.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("record store: unmarshal deactivated record: %w", err)
	}

	record := app.Record(item)
	return &record, nil
}
