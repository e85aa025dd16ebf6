package repo

import (
	"context"
	"fmt"

	"cramdesk/internal/domain"
	"cramdesk/internal/infra"
	"cramdesk/internal/sqlinline"
)

// DocumentRepositoryPG implements domain.DocumentRepository backed by PostgreSQL.
type DocumentRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDocumentRepository creates a new DocumentRepositoryPG.
func NewDocumentRepository(sql infra.SQLExecutor) *DocumentRepositoryPG {
	return &DocumentRepositoryPG{sql: sql}
}

// Create persists a freshly uploaded document and fills in its generated ID.
func (r *DocumentRepositoryPG) Create(ctx context.Context, doc *domain.Document) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertDocument, doc.AccountID, doc.Title, doc.StorageKey, doc.Language)
	if err := row.Scan(&doc.ID); err != nil {
		return fmt.Errorf("repo: create document: %w", mapStoreErr(err))
	}
	doc.Status = domain.DocumentStatusUploaded
	return nil
}

// GetByID fetches a document scoped to its owning account.
func (r *DocumentRepositoryPG) GetByID(ctx context.Context, id, accountID string) (*domain.Document, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectDocumentForAccount, id, accountID)
	var d domain.Document
	err := row.Scan(
		&d.ID, &d.AccountID, &d.Title, &d.StorageKey, &d.Language,
		&d.PageCount, &d.Status, &d.ExtractedText, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &d, nil
}

// ListByAccount returns the account's documents, newest first. The listing
// omits extracted text to keep responses small.
func (r *DocumentRepositoryPG) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDocumentsByAccount, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list documents: %w", mapStoreErr(err))
	}
	defer rows.Close()
	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		err := rows.Scan(
			&d.ID, &d.AccountID, &d.Title, &d.StorageKey, &d.Language,
			&d.PageCount, &d.Status, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repo: scan document: %w", mapStoreErr(err))
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list documents: %w", mapStoreErr(err))
	}
	return docs, nil
}

// Delete removes a document owned by the account.
func (r *DocumentRepositoryPG) Delete(ctx context.Context, id, accountID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteDocument, id, accountID)
	if err != nil {
		return fmt.Errorf("repo: delete document: %w", mapStoreErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
