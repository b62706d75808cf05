/*
Package dynamo – DynamoDB-backed record store.

Store implements tablemap.Base. The records of every table live in a single
DynamoDB table:

	pk     table id
	sk     record id
	fields map of field id → cell value
*/
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tablemap "github.com/cloudxsgmbh/tablemap-go"
	"github.com/cloudxsgmbh/tablemap-go/internal/uid"
)

// BatchSize is the DynamoDB BatchWriteItem limit.
const BatchSize = 25

const maxRetries = 11

// DynamoClient is the subset of the DynamoDB API used by Store. It is
// satisfied by *dynamodb.Client and by test doubles.
type DynamoClient interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	Query(ctx context.Context, params *ddb.QueryInput, optFns ...func(*ddb.Options)) (*ddb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *ddb.UpdateItemInput, optFns ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *ddb.BatchWriteItemInput, optFns ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error)

	// DDL
	CreateTable(ctx context.Context, params *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *ddb.DeleteTableInput, optFns ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error)
	ListTables(ctx context.Context, params *ddb.ListTablesInput, optFns ...func(*ddb.Options)) (*ddb.ListTablesOutput, error)
}

// TableDef declares the metadata of one stored table.
type TableDef struct {
	ID             string
	Name           string
	PrimaryFieldID string
	Fields         []tablemap.Field
	Views          []tablemap.View
}

// StoreParams configures a Store.
type StoreParams struct {
	Name     string // DynamoDB table name
	BaseName string // "" → Name
	Client   DynamoClient
	Tables   []TableDef
	PageSize int32           // Query page size, 0 → DynamoDB default
	Logger   tablemap.Logger // nil → tablemap.NopLogger
}

// Store is a tablemap.Base persisted in DynamoDB.
type Store struct {
	name     string
	baseName string
	client   DynamoClient
	pageSize int32
	log      tablemap.Logger
	tables   map[string]*Table
	byName   map[string]*Table
}

// NewStore creates a Store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Name == "" {
		return nil, tablemap.NewError(`Missing "name" property`, tablemap.WithCode(tablemap.ErrArgument))
	}
	if params.Client == nil {
		return nil, tablemap.NewError("Missing DynamoDB client", tablemap.WithCode(tablemap.ErrArgument))
	}
	s := &Store{
		name:     params.Name,
		baseName: params.BaseName,
		client:   params.Client,
		pageSize: params.PageSize,
		log:      params.Logger,
		tables:   map[string]*Table{},
		byName:   map[string]*Table{},
	}
	if s.baseName == "" {
		s.baseName = params.Name
	}
	if s.log == nil {
		s.log = tablemap.NopLogger{}
	}
	for _, def := range params.Tables {
		if def.ID == "" {
			return nil, tablemap.NewError("Table definition without id", tablemap.WithCode(tablemap.ErrArgument))
		}
		t := newTable(s, def)
		s.tables[def.ID] = t
		if def.Name != "" {
			s.byName[def.Name] = t
		}
	}
	return s, nil
}

// Name is the base name.
func (s *Store) Name() string { return s.baseName }

// Table resolves a table by id, then by name.
func (s *Store) Table(idOrName string) (tablemap.Table, error) {
	if t, ok := s.tables[idOrName]; ok {
		return t, nil
	}
	if t, ok := s.byName[idOrName]; ok {
		return t, nil
	}
	return nil, tablemap.NewError(fmt.Sprintf("Table %s does not exist in base %s", idOrName, s.baseName),
		tablemap.WithCode(tablemap.ErrInvalidTable))
}

// item is the stored shape of one record.
type item struct {
	PK     string         `dynamodbav:"pk"`
	SK     string         `dynamodbav:"sk"`
	Fields map[string]any `dynamodbav:"fields"`
}

func key(tableID, recordID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: tableID},
		"sk": &types.AttributeValueMemberS{Value: recordID},
	}
}

// query loads every item of a table, following LastEvaluatedKey.
func (s *Store) query(ctx context.Context, tableID string) ([]item, error) {
	input := &ddb.QueryInput{
		TableName:              aws.String(s.name),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: tableID},
		},
		ConsistentRead: aws.Bool(true),
	}
	if s.pageSize > 0 {
		input.Limit = aws.Int32(s.pageSize)
	}
	var items []item
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, tablemap.NewError("Query failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
		}
		page := make([]item, 0, len(out.Items))
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, tablemap.NewError("Invalid stored record", tablemap.WithCode(tablemap.ErrInvalidRecord), tablemap.WithCause(err))
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// batchWrite writes up to BatchSize requests, retrying unprocessed items
// with exponential backoff.
func (s *Store) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	input := &ddb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.name: reqs},
	}
	retries := 0
	for {
		out, err := s.client.BatchWriteItem(ctx, input)
		if err != nil {
			return tablemap.NewError("BatchWriteItem failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
		}
		unprocessed := out.UnprocessedItems[s.name]
		if len(unprocessed) == 0 {
			return nil
		}
		if retries > maxRetries {
			return tablemap.NewError("too many unprocessed items after retries", tablemap.WithCode(tablemap.ErrTransport))
		}
		s.log.Trace("Retrying unprocessed items", map[string]any{"count": len(unprocessed), "retry": retries})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(10*(1<<retries)) * time.Millisecond):
		}
		retries++
		input.RequestItems = map[string][]types.WriteRequest{s.name: unprocessed}
	}
}

func isConditionalFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// writeChunks throttles reqs into BatchWriteItem calls.
func (s *Store) writeChunks(ctx context.Context, reqs []types.WriteRequest) error {
	_, err := tablemap.Throttle(ctx, reqs, BatchSize, func(ctx context.Context, chunk []types.WriteRequest) ([]struct{}, error) {
		return nil, s.batchWrite(ctx, chunk)
	})
	return err
}

func newRecordID() string { return uid.RecordID() }
