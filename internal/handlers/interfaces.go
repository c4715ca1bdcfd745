package handlers

import (
	"context"

	"github.com/dimitrije/nikode-engine/internal/dispatch"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/internal/variables"
	"github.com/google/uuid"
)

// CollectionServiceInterface defines the methods used by handlers from CollectionService
type CollectionServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, description string, variables []models.Variable) (*models.Collection, error)
	GetByID(ctx context.Context, collectionID uuid.UUID) (*models.Collection, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error)
	IsOwner(ctx context.Context, collectionID, userID uuid.UUID) (bool, error)
	Update(ctx context.Context, collectionID uuid.UUID, u services.CollectionUpdate) (*models.Collection, error)
	Delete(ctx context.Context, collectionID uuid.UUID) error
}

// FolderServiceInterface defines the methods used by handlers from FolderService
type FolderServiceInterface interface {
	GetByID(ctx context.Context, folderID uuid.UUID) (*models.Folder, error)
	ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Folder, error)
	Move(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) (*models.Folder, error)
}

// RequestServiceInterface defines the methods used by handlers from RequestService
type RequestServiceInterface interface {
	GetByID(ctx context.Context, requestID uuid.UUID) (*models.Request, error)
	ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Request, error)
	SaveSnapshot(ctx context.Context, requestID uuid.UUID, snapshot *models.ResponseSnapshot) error
}

// ImportServiceInterface defines the methods used by handlers from ImportService
type ImportServiceInterface interface {
	Persist(ctx context.Context, ownerID uuid.UUID, result *normalize.ImportResult) (*models.Collection, error)
}

// EnvironmentServiceInterface defines the methods used by handlers from EnvironmentService
type EnvironmentServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*models.Environment, error)
	GetByID(ctx context.Context, environmentID uuid.UUID) (*models.Environment, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Environment, error)
}

// SecretServiceInterface defines the methods used by handlers from SecretService
type SecretServiceInterface interface {
	SetCollectionSecret(ctx context.Context, collectionID uuid.UUID, key, value string) error
	SetEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key, value string) error
	DeleteCollectionSecret(ctx context.Context, collectionID uuid.UUID, key string) error
	DeleteEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key string) error
}

// Importer turns an external document into a collection tree.
type Importer interface {
	Import(content []byte, name string) (*normalize.ImportResult, error)
}

// ResolverInterface defines the methods used by handlers from variables.Resolver
type ResolverInterface interface {
	Lookup(ctx context.Context, col *models.Collection) (variables.Lookup, error)
}

// DispatcherInterface defines the methods used by handlers from dispatch.Registry
type DispatcherInterface interface {
	Send(ctx context.Context, requestID uuid.UUID, fields models.RequestFields, opts dispatch.SendOptions) (dispatch.Outcome, error)
	Cancel(requestID uuid.UUID) bool
}

// DraftTrackerInterface defines the methods used by handlers from draft.Tracker
type DraftTrackerInterface interface {
	Edit(requestID uuid.UUID, saved, current models.RequestFields) bool
	Pending(requestID uuid.UUID) bool
	Current(requestID uuid.UUID, fallback models.RequestFields) (models.RequestFields, bool)
	Apply(ctx context.Context, requestID uuid.UUID, current models.RequestFields) (models.RequestFields, error)
	Restore(ctx context.Context, requestID uuid.UUID, saved models.RequestFields) (models.RequestFields, error)
}

// SSEHubInterface defines the methods used by handlers from the SSE Hub
type SSEHubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
	Subscribe(clientID string, userID, collectionID uuid.UUID) bool
	Unsubscribe(clientID string, userID, collectionID uuid.UUID)
	BroadcastRequestSent(e sse.RequestSentEvent)
	BroadcastDraftSaved(e sse.DraftEvent)
	BroadcastDraftApplied(e sse.DraftEvent)
	BroadcastCollectionImported(userID uuid.UUID, e sse.CollectionImportedEvent)
}
