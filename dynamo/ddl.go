package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tablemap "github.com/cloudxsgmbh/tablemap-go"
)

// ─── DDL ──────────────────────────────────────────────────────────────────────

const confirmRemoveTable = "DeleteTableForever"

// TableDefinition is the key layout of the DynamoDB table behind a Store.
type TableDefinition struct {
	AttributeDefinitions  []types.AttributeDefinition
	KeySchema             []types.KeySchemaElement
	BillingMode           types.BillingMode
	ProvisionedThroughput *types.ProvisionedThroughput
}

// TableDefinition returns the pk/sk key layout. A nil or zero provisioned
// throughput selects on-demand billing.
func (s *Store) TableDefinition(provisioned *types.ProvisionedThroughput) *TableDefinition {
	def := &TableDefinition{
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
	if provisioned != nil && (aws.ToInt64(provisioned.ReadCapacityUnits) > 0 || aws.ToInt64(provisioned.WriteCapacityUnits) > 0) {
		def.BillingMode = types.BillingModeProvisioned
		def.ProvisionedThroughput = provisioned
	}
	return def
}

// CreateTable creates the DynamoDB table.
func (s *Store) CreateTable(ctx context.Context, provisioned *types.ProvisionedThroughput) error {
	def := s.TableDefinition(provisioned)
	_, err := s.client.CreateTable(ctx, &ddb.CreateTableInput{
		TableName:             aws.String(s.name),
		AttributeDefinitions:  def.AttributeDefinitions,
		KeySchema:             def.KeySchema,
		BillingMode:           def.BillingMode,
		ProvisionedThroughput: def.ProvisionedThroughput,
	})
	if err != nil {
		return tablemap.NewError("CreateTable failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
	}
	s.log.Info("Created table", map[string]any{"table": s.name, "billing": string(def.BillingMode)})
	return nil
}

// DeleteTable permanently deletes the DynamoDB table.
func (s *Store) DeleteTable(ctx context.Context, confirmation string) error {
	if confirmation != confirmRemoveTable {
		return tablemap.NewError(fmt.Sprintf(`Missing required confirmation "%s"`, confirmRemoveTable),
			tablemap.WithCode(tablemap.ErrArgument))
	}
	if _, err := s.client.DeleteTable(ctx, &ddb.DeleteTableInput{TableName: aws.String(s.name)}); err != nil {
		return tablemap.NewError("DeleteTable failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
	}
	s.log.Info("Deleted table", map[string]any{"table": s.name})
	return nil
}

// Exists reports whether the DynamoDB table is present.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	input := &ddb.ListTablesInput{}
	for {
		out, err := s.client.ListTables(ctx, input)
		if err != nil {
			return false, tablemap.NewError("ListTables failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
		}
		for _, name := range out.TableNames {
			if name == s.name {
				return true, nil
			}
		}
		if out.LastEvaluatedTableName == nil {
			return false, nil
		}
		input.ExclusiveStartTableName = out.LastEvaluatedTableName
	}
}
