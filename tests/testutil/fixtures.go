package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateEnvironment creates an environment owned by ownerID
func (f *Fixtures) CreateEnvironment(t *testing.T, ownerID uuid.UUID) *models.Environment {
	t.Helper()
	f.counter++

	env, err := services.NewEnvironmentService(f.db).Create(context.Background(), ownerID, fmt.Sprintf("Env %d", f.counter))
	if err != nil {
		t.Fatalf("failed to create environment: %v", err)
	}
	return env
}

// CreateCollection creates a collection owned by ownerID with default values
func (f *Fixtures) CreateCollection(t *testing.T, ownerID uuid.UUID, opts ...CollectionOption) *models.Collection {
	t.Helper()
	f.counter++

	collection := &models.Collection{
		Name:      fmt.Sprintf("Collection %d", f.counter),
		Variables: []models.Variable{},
	}
	for _, opt := range opts {
		opt(collection)
	}

	created, err := services.NewCollectionService(f.db).Create(
		context.Background(), ownerID, collection.Name, collection.Description, collection.Variables,
	)
	if err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}
	return created
}

// CollectionOption configures a test collection
type CollectionOption func(*models.Collection)

// WithCollectionName sets the collection's name
func WithCollectionName(name string) CollectionOption {
	return func(c *models.Collection) {
		c.Name = name
	}
}

// WithVariables sets the collection's inline variables
func WithVariables(vars ...models.Variable) CollectionOption {
	return func(c *models.Collection) {
		c.Variables = vars
	}
}

// CreateFolder creates a folder in collection, optionally under parent
func (f *Fixtures) CreateFolder(t *testing.T, collection *models.Collection, parent *models.Folder) *models.Folder {
	t.Helper()
	f.counter++

	folder := &models.Folder{CollectionID: collection.ID, Name: fmt.Sprintf("Folder %d", f.counter)}
	if parent != nil {
		folder.ParentFolderID = &parent.ID
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO folders (collection_id, parent_folder_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, folder.CollectionID, folder.ParentFolderID, folder.Name).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	return folder
}

// CreateRequest creates a saved GET request in collection
func (f *Fixtures) CreateRequest(t *testing.T, collection *models.Collection, url string) *models.Request {
	t.Helper()
	f.counter++

	var id uuid.UUID
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO requests (collection_id, name, method, url)
		VALUES ($1, $2, 'GET', $3)
		RETURNING id
	`, collection.ID, fmt.Sprintf("Request %d", f.counter), url).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req, err := services.NewRequestService(f.db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load request: %v", err)
	}
	return req
}
