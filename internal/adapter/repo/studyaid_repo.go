package repo

import (
	"context"
	"fmt"

	"cramdesk/internal/domain"
	"cramdesk/internal/infra"
	"cramdesk/internal/sqlinline"
)

// StudyAidRepositoryPG implements domain.StudyAidRepository backed by PostgreSQL.
type StudyAidRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewStudyAidRepository creates a new StudyAidRepositoryPG.
func NewStudyAidRepository(sql infra.SQLExecutor) *StudyAidRepositoryPG {
	return &StudyAidRepositoryPG{sql: sql}
}

// Save persists a generated study aid and fills in its generated ID.
func (r *StudyAidRepositoryPG) Save(ctx context.Context, aid *domain.StudyAid) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertStudyAid,
		aid.AccountID, aid.DocumentID, aid.Kind, aid.Language,
		aid.PagesCharged, aid.Payload, aid.Provider,
	)
	if err := row.Scan(&aid.ID); err != nil {
		return fmt.Errorf("repo: save study aid: %w", mapStoreErr(err))
	}
	return nil
}

// ListByDocument returns all study aids generated from a document, newest first.
func (r *StudyAidRepositoryPG) ListByDocument(ctx context.Context, documentID, accountID string) ([]domain.StudyAid, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListStudyAidsByDocument, documentID, accountID)
	if err != nil {
		return nil, fmt.Errorf("repo: list study aids: %w", mapStoreErr(err))
	}
	defer rows.Close()
	var aids []domain.StudyAid
	for rows.Next() {
		var a domain.StudyAid
		err := rows.Scan(
			&a.ID, &a.AccountID, &a.DocumentID, &a.Kind, &a.Language,
			&a.PagesCharged, &a.Payload, &a.Provider, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repo: scan study aid: %w", mapStoreErr(err))
		}
		aids = append(aids, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list study aids: %w", mapStoreErr(err))
	}
	return aids, nil
}
