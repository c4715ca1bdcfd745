package services

import (
	"context"
	"errors"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrEnvironmentNotFound = errors.New("environment not found")

type EnvironmentService struct {
	db *database.DB
}

func NewEnvironmentService(db *database.DB) *EnvironmentService {
	return &EnvironmentService{db: db}
}

func (s *EnvironmentService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*models.Environment, error) {
	var env models.Environment
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO environments (owner_id, name)
		VALUES ($1, $2)
		RETURNING id, owner_id, name, created_at, updated_at
	`, ownerID, name).Scan(&env.ID, &env.OwnerID, &env.Name, &env.CreatedAt, &env.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *EnvironmentService) GetByID(ctx context.Context, environmentID uuid.UUID) (*models.Environment, error) {
	var env models.Environment
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM environments WHERE id = $1
	`, environmentID).Scan(&env.ID, &env.OwnerID, &env.Name, &env.CreatedAt, &env.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, err
	}
	return &env, nil
}

func (s *EnvironmentService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Environment, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM environments WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	envs := []models.Environment{}
	for rows.Next() {
		var env models.Environment
		if err := rows.Scan(&env.ID, &env.OwnerID, &env.Name, &env.CreatedAt, &env.UpdatedAt); err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, rows.Err()
}
