package services

import (
	"context"
	"errors"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrFolderNotFound        = errors.New("folder not found")
	ErrFolderCycle           = errors.New("folder cannot be moved into itself or one of its descendants")
	ErrFolderCrossCollection = errors.New("folder cannot be moved to another collection")
)

const folderColumns = `id, collection_id, parent_folder_id, name, created_at, updated_at`

type FolderService struct {
	db *database.DB
}

func NewFolderService(db *database.DB) *FolderService {
	return &FolderService{db: db}
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var f models.Folder
	err := row.Scan(&f.ID, &f.CollectionID, &f.ParentFolderID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *FolderService) GetByID(ctx context.Context, folderID uuid.UUID) (*models.Folder, error) {
	return scanFolder(s.db.Pool.QueryRow(ctx, `
		SELECT `+folderColumns+` FROM folders WHERE id = $1
	`, folderID))
}

func (s *FolderService) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Folder, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+folderColumns+`
		FROM folders WHERE collection_id = $1
		ORDER BY created_at, name
	`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// Move re-parents a folder. A nil parent moves it to the collection root. The
// target's ancestor chain is walked first so the tree can never gain a cycle.
func (s *FolderService) Move(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) (*models.Folder, error) {
	folder, err := s.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.CollectionID != folder.CollectionID {
			return nil, ErrFolderCrossCollection
		}
		if err := s.checkAncestors(ctx, folderID, parent); err != nil {
			return nil, err
		}
	}

	return scanFolder(s.db.Pool.QueryRow(ctx, `
		UPDATE folders SET parent_folder_id = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+folderColumns,
		parentID, folderID))
}

// checkAncestors walks up from start and fails if it reaches folderID.
func (s *FolderService) checkAncestors(ctx context.Context, folderID uuid.UUID, start *models.Folder) error {
	visited := map[uuid.UUID]bool{}
	current := start
	for {
		if current.ID == folderID {
			return ErrFolderCycle
		}
		if visited[current.ID] {
			// already cyclic data; refuse to add to it
			return ErrFolderCycle
		}
		visited[current.ID] = true
		if current.ParentFolderID == nil {
			return nil
		}
		next, err := s.GetByID(ctx, *current.ParentFolderID)
		if err != nil {
			return err
		}
		current = next
	}
}
