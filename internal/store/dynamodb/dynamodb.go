// Package dynamodb is a workflow.Store backed by a DynamoDB table with a string partition key "id".
//
// Version checks use conditional writes: Create requires the id to be absent and Save requires
// the stored version to equal the expected one. Listing scans the table with a filter, which is
// acceptable for the small tables this backend is meant for.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// API is the subset of the DynamoDB client used by the store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// NewClient returns a DynamoDB client, pointed at endpointURL when set (DynamoDB Local).
func NewClient(cfg aws.Config, endpointURL string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})
}

// Store implements workflow.Store.
type Store struct {
	client    API
	tableName string
}

// New returns a store using tableName.
func New(client API, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// documentItem is the DynamoDB representation of a workflow.Document.
// Times are RFC 3339 strings in UTC.
type documentItem struct {
	ID              string          `dynamodbav:"id"`
	OwnerID         string          `dynamodbav:"ownerId"`
	OwnerEmail      string          `dynamodbav:"ownerEmail"`
	FileName        string          `dynamodbav:"fileName"`
	SizeBytes       int64           `dynamodbav:"sizeBytes"`
	Ciphertext      []byte          `dynamodbav:"ciphertext,omitempty"`
	EncryptionKey   string          `dynamodbav:"encryptionKey"`
	IV              string          `dynamodbav:"iv"`
	BlobKey         string          `dynamodbav:"blobKey,omitempty"`
	Recipients      []recipientItem `dynamodbav:"recipients"`
	RecipientEmails []string        `dynamodbav:"recipientEmails"`
	State           string          `dynamodbav:"state"`
	ExpiryAt        string          `dynamodbav:"expiryAt,omitempty"`
	InputFields     []fieldItem     `dynamodbav:"inputFields"`
	SignatureReady  bool            `dynamodbav:"signatureReady"`
	UploadedAt      string          `dynamodbav:"uploadedAt"`
	SignedAt        string          `dynamodbav:"signedAt,omitempty"`
	Version         int64           `dynamodbav:"version"`
	DeletedAt       string          `dynamodbav:"deletedAt,omitempty"`
}

type recipientItem struct {
	Name  string `dynamodbav:"name"`
	Email string `dynamodbav:"email"`
}

type fieldItem struct {
	ID             string  `dynamodbav:"id"`
	Type           string  `dynamodbav:"type"`
	Value          string  `dynamodbav:"value,omitempty"`
	OwnerRecipient string  `dynamodbav:"ownerRecipient"`
	Page           int     `dynamodbav:"page"`
	X              float64 `dynamodbav:"x"`
	Y              float64 `dynamodbav:"y"`
}

func toItem(doc *workflow.Document, version int64) documentItem {
	item := documentItem{
		ID:              doc.ID,
		OwnerID:         doc.OwnerID,
		OwnerEmail:      doc.OwnerEmail,
		FileName:        doc.FileName,
		SizeBytes:       doc.SizeBytes,
		Ciphertext:      doc.Ciphertext,
		EncryptionKey:   doc.EncryptionKey,
		IV:              doc.IV,
		BlobKey:         doc.BlobKey,
		Recipients:      make([]recipientItem, 0, len(doc.Recipients)),
		RecipientEmails: make([]string, 0, len(doc.Recipients)),
		State:           string(doc.State),
		ExpiryAt:        formatTime(doc.ExpiryAt),
		InputFields:     make([]fieldItem, 0, len(doc.InputFields)),
		SignatureReady:  doc.SignatureReady,
		UploadedAt:      doc.UploadedAt.UTC().Format(time.RFC3339Nano),
		SignedAt:        formatTime(doc.SignedAt),
		Version:         version,
		DeletedAt:       formatTime(doc.DeletedAt),
	}
	for _, r := range doc.Recipients {
		item.Recipients = append(item.Recipients, recipientItem(r))
		item.RecipientEmails = append(item.RecipientEmails, identity.NormalizeEmail(r.Email))
	}
	for _, f := range doc.InputFields {
		item.InputFields = append(item.InputFields, fieldItem(f))
	}
	return item
}

func fromItem(item *documentItem) (*workflow.Document, error) {
	uploadedAt, err := time.Parse(time.RFC3339Nano, item.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploadedAt: %w", err)
	}
	expiryAt, err := parseTime(item.ExpiryAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expiryAt: %w", err)
	}
	signedAt, err := parseTime(item.SignedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signedAt: %w", err)
	}
	deletedAt, err := parseTime(item.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deletedAt: %w", err)
	}

	doc := &workflow.Document{
		ID:             item.ID,
		OwnerID:        item.OwnerID,
		OwnerEmail:     item.OwnerEmail,
		FileName:       item.FileName,
		SizeBytes:      item.SizeBytes,
		Ciphertext:     item.Ciphertext,
		EncryptionKey:  item.EncryptionKey,
		IV:             item.IV,
		BlobKey:        item.BlobKey,
		State:          workflow.State(item.State),
		ExpiryAt:       expiryAt,
		SignatureReady: item.SignatureReady,
		UploadedAt:     uploadedAt.UTC(),
		SignedAt:       signedAt,
		Version:        item.Version,
		DeletedAt:      deletedAt,
	}
	for _, r := range item.Recipients {
		doc.Recipients = append(doc.Recipients, workflow.Recipient(r))
	}
	for _, f := range item.InputFields {
		doc.InputFields = append(doc.InputFields, workflow.InputField(f))
	}
	return doc, nil
}

func (s *Store) Create(ctx context.Context, doc *workflow.Document) error {
	cond := expression.AttributeNotExists(expression.Name("id"))
	if err := s.put(ctx, doc, 1, cond); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return workflow.ErrAlreadyExists
		}
		return fmt.Errorf("failed to put document %s: %w", doc.ID, err)
	}
	doc.Version = 1
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*workflow.Document, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if result.Item == nil {
		return nil, workflow.ErrNotFound
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	return fromItem(&item)
}

func (s *Store) Save(ctx context.Context, doc *workflow.Document, expectedVersion int64) error {
	cond := expression.And(
		expression.AttributeExists(expression.Name("id")),
		expression.Name("version").Equal(expression.Value(expectedVersion)),
	)
	if err := s.put(ctx, doc, expectedVersion+1, cond); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// the old item is returned on failure; emulators may omit it, so check directly
			if len(ccf.Item) == 0 {
				if _, err := s.Load(ctx, doc.ID); errors.Is(err, workflow.ErrNotFound) {
					return workflow.ErrNotFound
				}
			}
			return workflow.ErrVersionConflict
		}
		return fmt.Errorf("failed to put document %s: %w", doc.ID, err)
	}
	doc.Version = expectedVersion + 1
	return nil
}

func (s *Store) put(ctx context.Context, doc *workflow.Document, version int64, cond expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(toItem(doc, version))
	if err != nil {
		return fmt.Errorf("failed to marshal document item: %w", err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                           aws.String(s.tableName),
		Item:                                av,
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return err
}

func (s *Store) ListByRecipient(ctx context.Context, email string) ([]*workflow.Document, error) {
	filter := expression.And(
		expression.Name("recipientEmails").Contains(identity.NormalizeEmail(email)),
		expression.AttributeNotExists(expression.Name("deletedAt")),
	)
	return s.scan(ctx, filter)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*workflow.Document, error) {
	filter := expression.And(
		expression.Name("ownerId").Equal(expression.Value(ownerID)),
		expression.AttributeNotExists(expression.Name("deletedAt")),
	)
	return s.scan(ctx, filter)
}

func (s *Store) scan(ctx context.Context, filter expression.ConditionBuilder) ([]*workflow.Document, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	out := make([]*workflow.Document, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB table: %w", err)
		}

		var items []documentItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document items: %w", err)
		}
		for i := range items {
			doc, err := fromItem(&items[i])
			if err != nil {
				return nil, fmt.Errorf("failed to convert item %s: %w", items[i].ID, err)
			}
			out = append(out, doc)
		}
	}
	return out, nil
}

// Ping checks the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return fmt.Errorf("failed to describe table %s: %w", s.tableName, err)
	}
	return nil
}

// CreateTable creates the documents table (on-demand billing) if it does not exist.
// It is used by the admin CLI and the tests against DynamoDB Local.
func CreateTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, time.Minute); err != nil {
		return fmt.Errorf("table %s not ready: %w", tableName, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
