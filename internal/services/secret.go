package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrEmptySecretKey = errors.New("secret key must not be empty")
)

// SecretService stores collection- and environment-scoped secrets encrypted
// and hands them out decrypted for variable resolution.
type SecretService struct {
	db     *database.DB
	cipher Cipher
}

func NewSecretService(db *database.DB, cipher Cipher) *SecretService {
	return &SecretService{db: db, cipher: cipher}
}

func (s *SecretService) SetCollectionSecret(ctx context.Context, collectionID uuid.UUID, key, value string) error {
	return s.upsert(ctx, `
		INSERT INTO secrets (collection_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, key) WHERE collection_id IS NOT NULL
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, collectionID, key, value)
}

func (s *SecretService) SetEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key, value string) error {
	return s.upsert(ctx, `
		INSERT INTO secrets (environment_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (environment_id, key) WHERE environment_id IS NOT NULL
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, environmentID, key, value)
}

func (s *SecretService) upsert(ctx context.Context, sql string, scopeID uuid.UUID, key, value string) error {
	if key == "" {
		return ErrEmptySecretKey
	}
	sealed, err := s.cipher.Seal(value)
	if err != nil {
		return fmt.Errorf("seal secret %q: %w", key, err)
	}
	_, err = s.db.Pool.Exec(ctx, sql, scopeID, key, sealed)
	return err
}

func (s *SecretService) DeleteCollectionSecret(ctx context.Context, collectionID uuid.UUID, key string) error {
	return s.delete(ctx, `DELETE FROM secrets WHERE collection_id = $1 AND key = $2`, collectionID, key)
}

func (s *SecretService) DeleteEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key string) error {
	return s.delete(ctx, `DELETE FROM secrets WHERE environment_id = $1 AND key = $2`, environmentID, key)
}

func (s *SecretService) delete(ctx context.Context, sql string, scopeID uuid.UUID, key string) error {
	tag, err := s.db.Pool.Exec(ctx, sql, scopeID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSecretNotFound
	}
	return nil
}

func (s *SecretService) CollectionSecrets(ctx context.Context, collectionID uuid.UUID) ([]models.Variable, error) {
	return s.list(ctx, `SELECT key, value FROM secrets WHERE collection_id = $1 ORDER BY key`, collectionID)
}

func (s *SecretService) EnvironmentSecrets(ctx context.Context, environmentID uuid.UUID) ([]models.Variable, error) {
	return s.list(ctx, `SELECT key, value FROM secrets WHERE environment_id = $1 ORDER BY key`, environmentID)
}

func (s *SecretService) list(ctx context.Context, sql string, scopeID uuid.UUID) ([]models.Variable, error) {
	rows, err := s.db.Pool.Query(ctx, sql, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vars := []models.Variable{}
	for rows.Next() {
		var key, sealed string
		if err := rows.Scan(&key, &sealed); err != nil {
			return nil, err
		}
		value, err := s.cipher.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("secret %q: %w", key, err)
		}
		vars = append(vars, models.Variable{Key: key, Value: value})
	}
	return vars, rows.Err()
}
