package dynamo

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ─── memMock ──────────────────────────────────────────────────────────────────

// memMock is a thread-safe in-memory DynamoDB substitute covering the calls
// made by Store.
type memMock struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	queries     int
	batchWrites []int // requests per BatchWriteItem call
	// unprocessed is the number of leading BatchWriteItem calls that hand
	// back their last request as unprocessed.
	unprocessed int
	created     *ddb.CreateTableInput
}

func newMemMock() *memMock {
	return &memMock{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *memMock) tbl(name string) map[string]map[string]types.AttributeValue {
	if m.tables[name] == nil {
		m.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[name]
}

func avStr(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return avStr(item["pk"]) + "||" + avStr(item["sk"])
}

func (m *memMock) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tbl(table))
}

func (m *memMock) GetItem(_ context.Context, p *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &ddb.GetItemOutput{Item: m.tbl(aws.ToString(p.TableName))[itemKey(p.Key)]}, nil
}

func (m *memMock) Query(_ context.Context, p *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if aws.ToString(p.KeyConditionExpression) != "#pk = :pk" || p.ExpressionAttributeNames["#pk"] != "pk" {
		return nil, fmt.Errorf("unsupported key condition %q", aws.ToString(p.KeyConditionExpression))
	}
	pk := avStr(p.ExpressionAttributeValues[":pk"])
	var matched []map[string]types.AttributeValue
	for _, it := range m.tbl(aws.ToString(p.TableName)) {
		if avStr(it["pk"]) == pk {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return avStr(matched[i]["sk"]) < avStr(matched[j]["sk"]) })
	if p.ExclusiveStartKey != nil {
		start := avStr(p.ExclusiveStartKey["sk"])
		i := sort.Search(len(matched), func(i int) bool { return avStr(matched[i]["sk"]) > start })
		matched = matched[i:]
	}
	out := &ddb.QueryOutput{}
	if p.Limit != nil && int(*p.Limit) < len(matched) {
		matched = matched[:*p.Limit]
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": last["pk"], "sk": last["sk"]}
	}
	out.Items = matched
	out.Count = int32(len(matched))
	return out, nil
}

var (
	setClause    = regexp.MustCompile(`#fields\.(#f\d+) = (:v\d+)`)
	removeClause = regexp.MustCompile(`REMOVE (.+)$`)
)

func (m *memMock) UpdateItem(_ context.Context, p *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tbl(aws.ToString(p.TableName))
	k := itemKey(p.Key)
	existing := t[k]
	if aws.ToString(p.ConditionExpression) == "attribute_exists(#pk)" && existing == nil {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	fields := map[string]types.AttributeValue{}
	if fm, ok := existing["fields"].(*types.AttributeValueMemberM); ok {
		for id, v := range fm.Value {
			fields[id] = v
		}
	}
	expr := aws.ToString(p.UpdateExpression)
	for _, s := range setClause.FindAllStringSubmatch(expr, -1) {
		fields[p.ExpressionAttributeNames[s[1]]] = p.ExpressionAttributeValues[s[2]]
	}
	if r := removeClause.FindStringSubmatch(expr); r != nil {
		for _, path := range strings.Split(r[1], ", ") {
			delete(fields, p.ExpressionAttributeNames[strings.TrimPrefix(path, "#fields.")])
		}
	}
	updated := map[string]types.AttributeValue{}
	for a, v := range existing {
		updated[a] = v
	}
	updated["fields"] = &types.AttributeValueMemberM{Value: fields}
	t[k] = updated
	return &ddb.UpdateItemOutput{}, nil
}

func (m *memMock) BatchWriteItem(_ context.Context, p *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &ddb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, reqs := range p.RequestItems {
		m.batchWrites = append(m.batchWrites, len(reqs))
		if len(reqs) > BatchSize {
			return nil, fmt.Errorf("ValidationException: too many items requested")
		}
		if m.unprocessed > 0 {
			m.unprocessed--
			out.UnprocessedItems[table] = reqs[len(reqs)-1:]
			reqs = reqs[:len(reqs)-1]
		}
		t := m.tbl(table)
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				t[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
			case r.DeleteRequest != nil:
				delete(t, itemKey(r.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (m *memMock) CreateTable(_ context.Context, p *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(p.TableName)
	if _, ok := m.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	m.tbl(name)
	m.created = p
	return &ddb.CreateTableOutput{}, nil
}

func (m *memMock) DeleteTable(_ context.Context, p *ddb.DeleteTableInput, _ ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(p.TableName)
	if _, ok := m.tables[name]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	delete(m.tables, name)
	return &ddb.DeleteTableOutput{}, nil
}

// ListTables pages one table name at a time.
func (m *memMock) ListTables(_ context.Context, p *ddb.ListTablesInput, _ ...func(*ddb.Options)) (*ddb.ListTablesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	start := aws.ToString(p.ExclusiveStartTableName)
	for i, n := range names {
		if n <= start {
			continue
		}
		out := &ddb.ListTablesOutput{TableNames: []string{n}}
		if i < len(names)-1 {
			out.LastEvaluatedTableName = aws.String(n)
		}
		return out, nil
	}
	return &ddb.ListTablesOutput{}, nil
}
