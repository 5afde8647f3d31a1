// Package sqlite is a single-node workflow.Store on an embedded SQLite database (modernc.org/sqlite,
// no cgo). It suits a single server instance; use the postgres store when running several.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements workflow.Store with database/sql.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and applies the migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sqlite allows one writer; a single connection also serialises the version check and the update.
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Migrate applies the embedded migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	// the provider is not closed: Close would close db
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}
	return nil
}

// New returns a store on an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const documentColumns = `id, owner_id, owner_email, file_name, size_bytes, ciphertext, encryption_key, iv, blob_key,
	recipients, state, expiry_at, input_fields, signature_ready, uploaded_at, signed_at, version, deleted_at`

const insertDocumentSQL = `
INSERT INTO documents (` + documentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

const updateDocumentSQL = `
UPDATE documents SET
	owner_id = ?, owner_email = ?, file_name = ?, size_bytes = ?, ciphertext = ?, encryption_key = ?,
	iv = ?, blob_key = ?, recipients = ?, state = ?, expiry_at = ?, input_fields = ?,
	signature_ready = ?, signed_at = ?, deleted_at = ?, version = version + 1
WHERE id = ? AND version = ?`

func (s *Store) Create(ctx context.Context, doc *workflow.Document) error {
	recipients, fields, err := encodeCollections(doc)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertDocumentSQL,
			doc.ID, doc.OwnerID, doc.OwnerEmail, doc.FileName, doc.SizeBytes, doc.Ciphertext,
			doc.EncryptionKey, doc.IV, doc.BlobKey, recipients, string(doc.State), micros(doc.ExpiryAt),
			fields, doc.SignatureReady, doc.UploadedAt.UnixMicro(), micros(doc.SignedAt), int64(1),
			micros(doc.DeletedAt),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return workflow.ErrAlreadyExists
		}
		return writeRecipients(ctx, tx, doc)
	})
	if errors.Is(err, workflow.ErrAlreadyExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}

	doc.Version = 1
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*workflow.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc *workflow.Document, expectedVersion int64) error {
	recipients, fields, err := encodeCollections(doc)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateDocumentSQL,
			doc.OwnerID, doc.OwnerEmail, doc.FileName, doc.SizeBytes, doc.Ciphertext, doc.EncryptionKey,
			doc.IV, doc.BlobKey, recipients, string(doc.State), micros(doc.ExpiryAt), fields,
			doc.SignatureReady, micros(doc.SignedAt), micros(doc.DeletedAt),
			doc.ID, expectedVersion,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE id = ?`, doc.ID).Scan(&count); err != nil {
				return err
			}
			if count == 0 {
				return workflow.ErrNotFound
			}
			return workflow.ErrVersionConflict
		}
		return writeRecipients(ctx, tx, doc)
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
		`SELECT `+documentColumns+` FROM documents d
		WHERE d.deleted_at IS NULL
		AND EXISTS (SELECT 1 FROM document_recipients r WHERE r.document_id = d.id AND r.email = ?)
		ORDER BY d.uploaded_at DESC, d.id`,
		identity.NormalizeEmail(email),
	)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*workflow.Document, error) {
	return s.list(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY uploaded_at DESC, id`,
		ownerID,
	)
}

// Ping checks the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) list(ctx context.Context, query string, arg string) ([]*workflow.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
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

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeRecipients(ctx context.Context, tx *sql.Tx, doc *workflow.Document) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_recipients WHERE document_id = ?`, doc.ID); err != nil {
		return err
	}
	for _, r := range doc.Recipients {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO document_recipients (document_id, email) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			doc.ID, identity.NormalizeEmail(r.Email))
		if err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*workflow.Document, error) {
	var (
		doc        workflow.Document
		state      string
		recipients string
		fields     string
		uploadedAt int64
		expiryAt   sql.NullInt64
		signedAt   sql.NullInt64
		deletedAt  sql.NullInt64
	)

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.OwnerEmail, &doc.FileName, &doc.SizeBytes, &doc.Ciphertext,
		&doc.EncryptionKey, &doc.IV, &doc.BlobKey, &recipients, &state, &expiryAt, &fields,
		&doc.SignatureReady, &uploadedAt, &signedAt, &doc.Version, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.State = workflow.State(state)
	if err := json.Unmarshal([]byte(recipients), &doc.Recipients); err != nil {
		return nil, fmt.Errorf("corrupt recipients for document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(fields), &doc.InputFields); err != nil {
		return nil, fmt.Errorf("corrupt input fields for document %s: %w", doc.ID, err)
	}
	if len(doc.InputFields) == 0 {
		doc.InputFields = nil
	}

	doc.UploadedAt = time.UnixMicro(uploadedAt).UTC()
	doc.ExpiryAt = fromMicros(expiryAt)
	doc.SignedAt = fromMicros(signedAt)
	doc.DeletedAt = fromMicros(deletedAt)
	return &doc, nil
}

func encodeCollections(doc *workflow.Document) (recipients string, fields string, err error) {
	rs := doc.Recipients
	if rs == nil {
		rs = []workflow.Recipient{}
	}
	r, err := json.Marshal(rs)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode recipients: %w", err)
	}

	inputs := doc.InputFields
	if inputs == nil {
		inputs = []workflow.InputField{}
	}
	f, err := json.Marshal(inputs)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode input fields: %w", err)
	}
	return string(r), string(f), nil
}

func micros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}

func fromMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMicro(v.Int64).UTC()
	return &t
}
