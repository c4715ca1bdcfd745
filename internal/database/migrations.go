package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS environments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS collections (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		environment_id UUID REFERENCES environments(id) ON DELETE SET NULL,
		variables JSONB NOT NULL DEFAULT '[]',
		follow_redirects BOOLEAN NOT NULL DEFAULT TRUE,
		timeout INTEGER NOT NULL DEFAULT 30 CHECK (timeout BETWEEN 1 AND 300),
		parse_ansi_colors BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS folders (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		collection_id UUID NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		parent_folder_id UUID REFERENCES folders(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		collection_id UUID NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		folder_id UUID REFERENCES folders(id) ON DELETE SET NULL,
		name VARCHAR(255) NOT NULL,
		method VARCHAR(16) NOT NULL DEFAULT 'GET',
		url TEXT NOT NULL DEFAULT '',
		headers JSONB NOT NULL DEFAULT '[]',
		params JSONB NOT NULL DEFAULT '[]',
		path_params JSONB NOT NULL DEFAULT '[]',
		request_type VARCHAR(20) NOT NULL DEFAULT 'none',
		content_type VARCHAR(100) NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		form_data JSONB NOT NULL DEFAULT '[]',
		url_encoded_data JSONB NOT NULL DEFAULT '[]',
		has_draft_edits BOOLEAN NOT NULL DEFAULT FALSE,
		draft_method VARCHAR(16),
		draft_url TEXT,
		draft_headers JSONB,
		draft_params JSONB,
		draft_path_params JSONB,
		draft_request_type VARCHAR(20),
		draft_content_type VARCHAR(100),
		draft_body TEXT,
		draft_form_data JSONB,
		draft_url_encoded_data JSONB,
		response_snapshot JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS secrets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		collection_id UUID REFERENCES collections(id) ON DELETE CASCADE,
		environment_id UUID REFERENCES environments(id) ON DELETE CASCADE,
		key VARCHAR(255) NOT NULL,
		value TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK ((collection_id IS NULL) <> (environment_id IS NULL))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_collections_owner_id ON collections(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_folders_collection_id ON folders(collection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_folders_parent_folder_id ON folders(parent_folder_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_collection_id ON requests(collection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_folder_id ON requests(folder_id)`,

	// one value per key within a scope
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_secrets_collection_key ON secrets(collection_id, key) WHERE collection_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_secrets_environment_key ON secrets(environment_id, key) WHERE environment_id IS NOT NULL`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
