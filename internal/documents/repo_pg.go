package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"securelink-backend/internal/shared/storage/db"
)

// ownerTypeConstraint is the partial unique index on live (owner_id, doc_type) pairs.
const ownerTypeConstraint = "documents_owner_type_key"

// PGRepo implements Repo using Postgres. Deletes are soft so the unique index
// only covers rows with deleted_at IS NULL.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, doc_type, id_number, file_name, file_type, file_size, file_path, download_url, status, page_count, created_at, last_updated`

func (r *PGRepo) FindByOwnerAndType(ctx context.Context, ownerID string, docType DocType) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND doc_type = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, ownerID, string(docType)))
}

func (r *PGRepo) Insert(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, owner_id, doc_type, id_number, file_name, file_type, file_size,
    file_path, download_url, status, page_count, created_at, last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		string(doc.DocType),
		doc.IDNumber,
		doc.FileName,
		doc.FileType,
		doc.FileSize,
		doc.FilePath,
		doc.DownloadURL,
		doc.Status,
		doc.PageCount,
		nullableTime(doc.CreatedAt),
		doc.LastUpdated,
	)
	if db.IsUniqueViolation(err, ownerTypeConstraint) {
		return ErrDuplicateType
	}
	return err
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND deleted_at IS NULL`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *PGRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id, ownerID))
}

func (r *PGRepo) UpdateFile(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET file_name = $3, file_type = $4, file_size = $5, file_path = $6,
    download_url = $7, page_count = $8, last_updated = $9
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.FileType,
		doc.FileSize,
		doc.FilePath,
		doc.DownloadURL,
		doc.PageCount,
		doc.LastUpdated,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `
UPDATE documents
SET deleted_at = now()
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var docType string
	var createdAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&docType,
		&doc.IDNumber,
		&doc.FileName,
		&doc.FileType,
		&doc.FileSize,
		&doc.FilePath,
		&doc.DownloadURL,
		&doc.Status,
		&doc.PageCount,
		&createdAt,
		&doc.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.DocType = DocType(docType)
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	return doc, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
