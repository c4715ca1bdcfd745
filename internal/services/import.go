package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/google/uuid"
)

// ImportService persists an importer result as a new collection. Everything
// is written in one transaction so a failed import leaves nothing behind.
type ImportService struct {
	db *database.DB
}

func NewImportService(db *database.DB) *ImportService {
	return &ImportService{db: db}
}

func (s *ImportService) Persist(ctx context.Context, ownerID uuid.UUID, result *normalize.ImportResult) (*models.Collection, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	vars, err := encodeJSON(nonNilVariables(result.Variables))
	if err != nil {
		return nil, err
	}
	collection, err := scanCollection(tx.QueryRow(ctx, `
		INSERT INTO collections (owner_id, name, description, variables)
		VALUES ($1, $2, $3, $4)
		RETURNING `+collectionColumns,
		ownerID, result.CollectionName, result.Description, vars))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	for _, f := range result.Folders {
		_, err := tx.Exec(ctx, `
			INSERT INTO folders (id, collection_id, parent_folder_id, name)
			VALUES ($1, $2, $3, $4)
		`, f.ID, collection.ID, f.ParentFolderID, f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create folder %q: %w", f.Name, err)
		}
	}

	for _, r := range result.Requests {
		fields, err := encodeFields(r.RequestFields)
		if err != nil {
			return nil, err
		}
		args := append([]any{r.ID, collection.ID, r.FolderID, r.Name}, fields...)
		_, err = tx.Exec(ctx, `
			INSERT INTO requests (id, collection_id, folder_id, name,
				method, url, headers, params, path_params,
				request_type, content_type, body, form_data, url_encoded_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create request %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return collection, nil
}
