// Package postgres is the production workflow.Store, backed by a pgx connection pool.
//
// Optimistic concurrency is enforced in SQL: Save updates the row only when its version still
// equals the expected version, so two writers that loaded the same version cannot both succeed.
// Every committed version is also recorded in document_transitions.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

const uniqueViolation = "23505"

// PoolOptions are the connection pool settings (see config DB_* variables).
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// NewPool creates a connection pool and pings the database.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

// Store implements workflow.Store on the documents table.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a store using pool. The schema must already be migrated (see Migrate).
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const documentColumns = `id, owner_id, owner_email, file_name, size_bytes, ciphertext, encryption_key, iv, blob_key,
	recipients, state, expiry_at, input_fields, signature_ready, uploaded_at, signed_at, version, deleted_at`

const insertDocumentSQL = `
INSERT INTO documents (
	id, owner_id, owner_email, file_name, size_bytes, ciphertext, encryption_key, iv, blob_key,
	recipients, recipient_emails, state, expiry_at, input_fields, signature_ready, uploaded_at,
	signed_at, version, deleted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const updateDocumentSQL = `
UPDATE documents SET
	owner_id = $3,
	owner_email = $4,
	file_name = $5,
	size_bytes = $6,
	ciphertext = $7,
	encryption_key = $8,
	iv = $9,
	blob_key = $10,
	recipients = $11,
	recipient_emails = $12,
	state = $13,
	expiry_at = $14,
	input_fields = $15,
	signature_ready = $16,
	signed_at = $17,
	deleted_at = $18,
	version = version + 1,
	updated_at = NOW()
WHERE id = $1 AND version = $2`

const insertTransitionSQL = `
INSERT INTO document_transitions (document_id, version, state) VALUES ($1, $2, $3)`

func (s *Store) Create(ctx context.Context, doc *workflow.Document) error {
	recipients, emails, fields, err := encodeCollections(doc)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertDocumentSQL,
			doc.ID, doc.OwnerID, doc.OwnerEmail, doc.FileName, doc.SizeBytes, doc.Ciphertext,
			doc.EncryptionKey, doc.IV, doc.BlobKey, recipients, emails, string(doc.State), doc.ExpiryAt,
			fields, doc.SignatureReady, doc.UploadedAt, doc.SignedAt, int64(1), doc.DeletedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertTransitionSQL, doc.ID, int64(1), string(doc.State))
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return workflow.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}

	doc.Version = 1
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*workflow.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc *workflow.Document, expectedVersion int64) error {
	recipients, emails, fields, err := encodeCollections(doc)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateDocumentSQL,
			doc.ID, expectedVersion, doc.OwnerID, doc.OwnerEmail, doc.FileName, doc.SizeBytes,
			doc.Ciphertext, doc.EncryptionKey, doc.IV, doc.BlobKey, recipients, emails,
			string(doc.State), doc.ExpiryAt, fields, doc.SignatureReady, doc.SignedAt, doc.DeletedAt,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, doc.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return workflow.ErrNotFound
			}
			return workflow.ErrVersionConflict
		}

		_, err = tx.Exec(ctx, insertTransitionSQL, doc.ID, expectedVersion+1, string(doc.State))
		return err
	})
	if errors.Is(err, workflow.ErrNotFound) || errors.Is(err, workflow.ErrVersionConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	doc.Version = expectedVersion + 1
	return nil
}

func (s *Store) ListByRecipient(ctx context.Context, email string) ([]*workflow.Document, error) {
	return s.list(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE $1 = ANY (recipient_emails) AND deleted_at IS NULL
		ORDER BY uploaded_at DESC, id`,
		identity.NormalizeEmail(email),
	)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*workflow.Document, error) {
	return s.list(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC, id`,
		ownerID,
	)
}

func (s *Store) list(ctx context.Context, query string, arg string) ([]*workflow.Document, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	out := make([]*workflow.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return out, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Transitions returns the states recorded for each committed version of a document, oldest first.
func (s *Store) Transitions(ctx context.Context, id string) ([]workflow.State, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM document_transitions WHERE document_id = $1 ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	states, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (workflow.State, error) {
		var s string
		err := row.Scan(&s)
		return workflow.State(s), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}
	return states, nil
}

func scanDocument(row pgx.Row) (*workflow.Document, error) {
	var (
		doc        workflow.Document
		state      string
		recipients []byte
		fields     []byte
	)

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.OwnerEmail, &doc.FileName, &doc.SizeBytes, &doc.Ciphertext,
		&doc.EncryptionKey, &doc.IV, &doc.BlobKey, &recipients, &state, &doc.ExpiryAt, &fields,
		&doc.SignatureReady, &doc.UploadedAt, &doc.SignedAt, &doc.Version, &doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.State = workflow.State(state)
	if err := json.Unmarshal(recipients, &doc.Recipients); err != nil {
		return nil, fmt.Errorf("corrupt recipients for document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(fields, &doc.InputFields); err != nil {
		return nil, fmt.Errorf("corrupt input fields for document %s: %w", doc.ID, err)
	}
	if len(doc.InputFields) == 0 {
		doc.InputFields = nil
	}

	doc.UploadedAt = doc.UploadedAt.UTC()
	doc.ExpiryAt = utc(doc.ExpiryAt)
	doc.SignedAt = utc(doc.SignedAt)
	doc.DeletedAt = utc(doc.DeletedAt)
	return &doc, nil
}

// encodeCollections returns the JSON columns and the normalized recipient email array.
func encodeCollections(doc *workflow.Document) (recipients []byte, emails []string, fields []byte, err error) {
	rs := doc.Recipients
	if rs == nil {
		rs = []workflow.Recipient{}
	}
	recipients, err = json.Marshal(rs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode recipients: %w", err)
	}

	fs := doc.InputFields
	if fs == nil {
		fs = []workflow.InputField{}
	}
	fields, err = json.Marshal(fs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode input fields: %w", err)
	}

	emails = make([]string, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		emails = append(emails, identity.NormalizeEmail(r.Email))
	}
	return recipients, emails, fields, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
