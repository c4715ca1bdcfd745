package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
)

const collectionColumns = `id, owner_id, name, description, environment_id, variables,
	follow_redirects, timeout, parse_ansi_colors, created_at, updated_at`

type CollectionService struct {
	db *database.DB
}

func NewCollectionService(db *database.DB) *CollectionService {
	return &CollectionService{db: db}
}

// CollectionUpdate lists the settings to change. Nil fields are left alone.
type CollectionUpdate struct {
	Name            *string
	Description     *string
	EnvironmentID   *uuid.UUID
	UnlinkEnv       bool
	Variables       *[]models.Variable
	FollowRedirects *bool
	Timeout         *int
	ParseANSIColors *bool
}

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	var variables []byte
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.EnvironmentID, &variables,
		&c.FollowRedirects, &c.Timeout, &c.ParseANSIColors, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	if err := decodeJSON(variables, &c.Variables); err != nil {
		return nil, fmt.Errorf("decode collection variables: %w", err)
	}
	if c.Variables == nil {
		c.Variables = []models.Variable{}
	}
	return &c, nil
}

func (s *CollectionService) Create(ctx context.Context, ownerID uuid.UUID, name, description string, variables []models.Variable) (*models.Collection, error) {
	vars, err := encodeJSON(nonNilVariables(variables))
	if err != nil {
		return nil, err
	}
	return scanCollection(s.db.Pool.QueryRow(ctx, `
		INSERT INTO collections (owner_id, name, description, variables)
		VALUES ($1, $2, $3, $4)
		RETURNING `+collectionColumns,
		ownerID, name, description, vars))
}

func (s *CollectionService) GetByID(ctx context.Context, collectionID uuid.UUID) (*models.Collection, error) {
	return scanCollection(s.db.Pool.QueryRow(ctx, `
		SELECT `+collectionColumns+`
		FROM collections WHERE id = $1
	`, collectionID))
}

func (s *CollectionService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+collectionColumns+`
		FROM collections WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := []models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *c)
	}
	return collections, rows.Err()
}

func (s *CollectionService) IsOwner(ctx context.Context, collectionID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM collections WHERE id = $1 AND owner_id = $2)
	`, collectionID, userID).Scan(&exists)
	return exists, err
}

func (s *CollectionService) Update(ctx context.Context, collectionID uuid.UUID, u CollectionUpdate) (*models.Collection, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.UnlinkEnv {
		sets = append(sets, "environment_id = NULL")
	} else if u.EnvironmentID != nil {
		set("environment_id", *u.EnvironmentID)
	}
	if u.Variables != nil {
		vars, err := encodeJSON(nonNilVariables(*u.Variables))
		if err != nil {
			return nil, err
		}
		set("variables", vars)
	}
	if u.FollowRedirects != nil {
		set("follow_redirects", *u.FollowRedirects)
	}
	if u.Timeout != nil {
		set("timeout", models.ClampTimeout(*u.Timeout))
	}
	if u.ParseANSIColors != nil {
		set("parse_ansi_colors", *u.ParseANSIColors)
	}
	if len(sets) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	args = append(args, collectionID)
	query := fmt.Sprintf(`
		UPDATE collections
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING `+collectionColumns, strings.Join(sets, ", "), len(args))
	return scanCollection(s.db.Pool.QueryRow(ctx, query, args...))
}

func (s *CollectionService) Delete(ctx context.Context, collectionID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, collectionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func nonNilVariables(v []models.Variable) []models.Variable {
	if v == nil {
		return []models.Variable{}
	}
	return v
}

func encodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return data, nil
}

// decodeJSON leaves v untouched for NULL columns.
func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
