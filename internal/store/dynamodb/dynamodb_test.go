package dynamodb

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/store/awsconfig"
	"github.com/information-sharing-networks/docsign/internal/store/storetest"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// fakeAPI is an in-memory table that understands the condition and filter expressions the store
// builds: attribute_not_exists(id) on create, a version equality on save, and a single
// recipientEmails or ownerId filter on scan.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// omitOldItem mimics emulators that do not return ALL_OLD on a failed condition
	omitOldItem bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	item, ok := f.items[id]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := in.Item["id"].(*types.AttributeValueMemberS).Value
	old, exists := f.items[id]
	failed := func() error {
		ccf := &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		if exists && !f.omitOldItem {
			ccf.Item = copyItem(old)
		}
		return ccf
	}

	cond := aws.ToString(in.ConditionExpression)
	if strings.Contains(cond, "attribute_not_exists") {
		if exists {
			return nil, failed()
		}
	} else {
		want := in.ExpressionAttributeValues[":0"].(*types.AttributeValueMemberN).Value
		if !exists || old["version"].(*types.AttributeValueMemberN).Value != want {
			return nil, failed()
		}
	}

	f.items[id] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var field string
	for _, name := range in.ExpressionAttributeNames {
		if name == "recipientEmails" || name == "ownerId" {
			field = name
		}
	}
	want := in.ExpressionAttributeValues[":0"].(*types.AttributeValueMemberS).Value

	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		if _, deleted := item["deletedAt"]; deleted {
			continue
		}
		switch field {
		case "ownerId":
			if item["ownerId"].(*types.AttributeValueMemberS).Value != want {
				continue
			}
		case "recipientEmails":
			var emails []string
			if err := attributevalue.Unmarshal(item["recipientEmails"], &emails); err != nil {
				return nil, err
			}
			if !slices.Contains(emails, want) {
				continue
			}
		}
		out.Items = append(out.Items, copyItem(item))
	}
	return out, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		if b, ok := v.(*types.AttributeValueMemberB); ok {
			v = &types.AttributeValueMemberB{Value: slices.Clone(b.Value)}
		}
		out[k] = v
	}
	return out
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) workflow.Store {
		return New(newFakeAPI(), "documents")
	})
}

func TestSaveDistinguishesMissingWithoutOldItem(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.omitOldItem = true
	s := New(api, "documents")

	doc := storetest.NewDocument("owner-1", "a@example.com")
	require.ErrorIs(t, s.Save(ctx, doc, 1), workflow.ErrNotFound)

	require.NoError(t, s.Create(ctx, doc))
	stale := doc.Clone()
	require.NoError(t, s.Save(ctx, doc, 1))
	require.ErrorIs(t, s.Save(ctx, stale, 1), workflow.ErrVersionConflict)
}

func TestItemRoundTrip(t *testing.T) {
	doc := storetest.NewDocument("owner-1", "A@Example.com", "b@example.com")
	signed := doc.UploadedAt.Add(time.Hour)
	doc.SignedAt = &signed
	doc.State = workflow.StateSigned
	doc.ExpiryAt = nil
	doc.InputFields = []workflow.InputField{
		{ID: "f1", Type: "signature", OwnerRecipient: "a@example.com", Page: 2, X: 10.5, Y: 99},
	}

	item := toItem(doc, 7)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, item.RecipientEmails)
	assert.Empty(t, item.ExpiryAt)

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	_, hasExpiry := av["expiryAt"]
	assert.False(t, hasExpiry, "nil times are omitted")

	var decoded documentItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &decoded))
	got, err := fromItem(&decoded)
	require.NoError(t, err)

	doc.Version = 7
	storetest.AssertDocumentsEqual(t, doc, got)
}

func TestCreateWrapsServiceErrors(t *testing.T) {
	s := New(&failingAPI{err: errors.New("throttled")}, "documents")
	err := s.Create(context.Background(), storetest.NewDocument("owner-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, workflow.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "throttled")
}

type failingAPI struct {
	fakeAPI
	err error
}

func (f *failingAPI) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return nil, f.err
}

// TestDynamoDBLocal runs the contract against a real endpoint, e.g.
//
//	docker run -p 8000:8000 amazon/dynamodb-local
//	DYNAMODB_TEST_ENDPOINT=http://localhost:8000 go test ./internal/store/dynamodb
func TestDynamoDBLocal(t *testing.T) {
	endpoint := os.Getenv("DYNAMODB_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("DYNAMODB_TEST_ENDPOINT not set")
	}
	ctx := context.Background()

	cfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: "us-east-1", EndpointURL: endpoint})
	require.NoError(t, err)
	client := NewClient(cfg, endpoint)

	storetest.Run(t, func(t *testing.T) workflow.Store {
		table := "docsign-test-" + uuid.NewString()[:8]
		require.NoError(t, CreateTable(ctx, client, table))
		t.Cleanup(func() {
			_, _ = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(table)})
		})
		return New(client, table)
	})
}
