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

// accountDynamoDB is a narrow, consumer-defined interface for DynamoDB
// operations required by the account store. The *dynamodb.Client satisfies
// this interface; test stubs implement it directly.
type accountDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	Scan(ctx context.Context, params *dynamo.ScanInput, optFns ...func(*dynamo.Options)) (*dynamo.ScanOutput, error)
}

// accountItem is the DynamoDB item shape for the accounts table.
type accountItem struct {
	AccountID string `dynamodbav:"account_id"`
	CPF       string `dynamodbav:"cpf"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// AccountStore persists account records in DynamoDB.
type AccountStore struct {
	db        accountDynamoDB
	tableName string
	indexName string
}

// NewAccountStore creates an AccountStore backed by the given DynamoDB client.
func NewAccountStore(db accountDynamoDB, tableName string) *AccountStore {
	return &AccountStore{
		db:        db,
		tableName: tableName,
		indexName: "cpf-index",
	}
}

// GetByID retrieves an account record by ID using a strongly consistent read.
// Returns domain.ErrNotFound when no account exists for the given ID.
func (s *AccountStore) GetByID(ctx context.Context, accountID string) (*app.Account, error) {
	ctx, span := tracer.Start(ctx, "dynamo.accounts.get_by_id")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"account_id": &dynamo.AttributeValueMemberS{Value: accountID},
		},
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("account store: get by id: %w", err)
	}

	if out.Item == nil {
		return nil, fmt.Errorf("account store: get by id: %w", domain.ErrNotFound)
	}

	var item accountItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("account store: unmarshal account: %w", err)
	}

	account := app.Account(item)
	return &account, nil
}

// FindByCPF looks up an account by canonical CPF via the cpf-index GSI,
// then fetches the full record with a consistent GetItem read.
// Returns domain.ErrNotFound when no account exists for the given CPF.
func (s *AccountStore) FindByCPF(ctx context.Context, cpf string) (*app.Account, error) {
	ctx, span := tracer.Start(ctx, "dynamo.accounts.find_by_cpf")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "Query"),
	)

	keyExpr := "cpf = :cpf"

	queryOut, err := s.db.Query(ctx, &dynamo.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.indexName,
		KeyConditionExpression: &keyExpr,
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":cpf": &dynamo.AttributeValueMemberS{Value: cpf},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("account store: find by cpf query: %w", err)
	}

	if len(queryOut.Items) == 0 {
		return nil, fmt.Errorf("account store: find by cpf: %w", domain.ErrNotFound)
	}

	// Extract account_id from the GSI projection.
	var projected struct {
		AccountID string `dynamodbav:"account_id"`
	}
	if err := dynamo.UnmarshalMap(queryOut.Items[0], &projected); err != nil {
		return nil, fmt.Errorf("account store: unmarshal gsi projection: %w", err)
	}

	// Check context between multi-step operations.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("account store: find by cpf: %w", err)
	}

	return s.GetByID(ctx, projected.AccountID)
}

// Create writes a new account with a condition that the account ID is not
// already taken. On ConditionalCheckFailed the caller receives
// domain.ErrAlreadyExists.
func (s *AccountStore) Create(ctx context.Context, record app.Account) error {
	ctx, span := tracer.Start(ctx, "dynamo.accounts.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	item := accountItem(record)

	av, err := dynamo.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("account store: marshal item: %w", err)
	}

	condExpr := "attribute_not_exists(account_id)"

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("account store: create: %w", domain.ErrAlreadyExists)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("account store: create: %w", err)
	}

	return nil
}

// List returns every account, following scan pagination until the table is
// exhausted. Offset/limit windowing is the caller's concern.
func (s *AccountStore) List(ctx context.Context) ([]app.Account, error) {
	ctx, span := tracer.Start(ctx, "dynamo.accounts.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "Scan"),
	)

	var accounts []app.Account
	var startKey map[string]dynamo.AttributeValue

	for {
		out, err := s.db.Scan(ctx, &dynamo.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("account store: list scan: %w", err)
		}

		var items []accountItem
		if err := dynamo.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("account store: unmarshal scan page: %w", err)
		}
		for _, item := range items {
			accounts = append(accounts, app.Account(item))
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return accounts, nil
}
