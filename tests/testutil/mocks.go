package testutil

import (
	"context"

	"github.com/dimitrije/nikode-engine/internal/dispatch"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/internal/variables"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCollectionService mocks the CollectionService
type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) Create(ctx context.Context, ownerID uuid.UUID, name, description string, vars []models.Variable) (*models.Collection, error) {
	args := m.Called(ctx, ownerID, name, description, vars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionService) GetByID(ctx context.Context, collectionID uuid.UUID) (*models.Collection, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Collection), args.Error(1)
}

func (m *MockCollectionService) IsOwner(ctx context.Context, collectionID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, collectionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCollectionService) Update(ctx context.Context, collectionID uuid.UUID, u services.CollectionUpdate) (*models.Collection, error) {
	args := m.Called(ctx, collectionID, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionService) Delete(ctx context.Context, collectionID uuid.UUID) error {
	args := m.Called(ctx, collectionID)
	return args.Error(0)
}

// MockFolderService mocks the FolderService
type MockFolderService struct {
	mock.Mock
}

func (m *MockFolderService) GetByID(ctx context.Context, folderID uuid.UUID) (*models.Folder, error) {
	args := m.Called(ctx, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Folder), args.Error(1)
}

func (m *MockFolderService) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Folder, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Folder), args.Error(1)
}

func (m *MockFolderService) Move(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) (*models.Folder, error) {
	args := m.Called(ctx, folderID, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Folder), args.Error(1)
}

// MockRequestService mocks the RequestService
type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) GetByID(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestService) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Request, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Request), args.Error(1)
}

func (m *MockRequestService) SaveSnapshot(ctx context.Context, requestID uuid.UUID, snapshot *models.ResponseSnapshot) error {
	args := m.Called(ctx, requestID, snapshot)
	return args.Error(0)
}

// MockImportService mocks the ImportService
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Persist(ctx context.Context, ownerID uuid.UUID, result *normalize.ImportResult) (*models.Collection, error) {
	args := m.Called(ctx, ownerID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

// MockEnvironmentService mocks the EnvironmentService
type MockEnvironmentService struct {
	mock.Mock
}

func (m *MockEnvironmentService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*models.Environment, error) {
	args := m.Called(ctx, ownerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Environment), args.Error(1)
}

func (m *MockEnvironmentService) GetByID(ctx context.Context, environmentID uuid.UUID) (*models.Environment, error) {
	args := m.Called(ctx, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Environment), args.Error(1)
}

func (m *MockEnvironmentService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Environment, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Environment), args.Error(1)
}

// MockSecretService mocks the SecretService
type MockSecretService struct {
	mock.Mock
}

func (m *MockSecretService) SetCollectionSecret(ctx context.Context, collectionID uuid.UUID, key, value string) error {
	return m.Called(ctx, collectionID, key, value).Error(0)
}

func (m *MockSecretService) SetEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key, value string) error {
	return m.Called(ctx, environmentID, key, value).Error(0)
}

func (m *MockSecretService) DeleteCollectionSecret(ctx context.Context, collectionID uuid.UUID, key string) error {
	return m.Called(ctx, collectionID, key).Error(0)
}

func (m *MockSecretService) DeleteEnvironmentSecret(ctx context.Context, environmentID uuid.UUID, key string) error {
	return m.Called(ctx, environmentID, key).Error(0)
}

// MockImporter mocks a document importer
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(content []byte, name string) (*normalize.ImportResult, error) {
	args := m.Called(content, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*normalize.ImportResult), args.Error(1)
}

// MockResolver mocks the variables Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Lookup(ctx context.Context, col *models.Collection) (variables.Lookup, error) {
	args := m.Called(ctx, col)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(variables.Lookup), args.Error(1)
}

// MockDispatcher mocks the dispatch Registry
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, requestID uuid.UUID, fields models.RequestFields, opts dispatch.SendOptions) (dispatch.Outcome, error) {
	args := m.Called(ctx, requestID, fields, opts)
	return args.Get(0).(dispatch.Outcome), args.Error(1)
}

func (m *MockDispatcher) Cancel(requestID uuid.UUID) bool {
	return m.Called(requestID).Bool(0)
}

// MockDraftTracker mocks the draft Tracker
type MockDraftTracker struct {
	mock.Mock
}

func (m *MockDraftTracker) Edit(requestID uuid.UUID, saved, current models.RequestFields) bool {
	return m.Called(requestID, saved, current).Bool(0)
}

func (m *MockDraftTracker) Pending(requestID uuid.UUID) bool {
	return m.Called(requestID).Bool(0)
}

func (m *MockDraftTracker) Current(requestID uuid.UUID, fallback models.RequestFields) (models.RequestFields, bool) {
	args := m.Called(requestID, fallback)
	return args.Get(0).(models.RequestFields), args.Bool(1)
}

func (m *MockDraftTracker) Apply(ctx context.Context, requestID uuid.UUID, current models.RequestFields) (models.RequestFields, error) {
	args := m.Called(ctx, requestID, current)
	return args.Get(0).(models.RequestFields), args.Error(1)
}

func (m *MockDraftTracker) Restore(ctx context.Context, requestID uuid.UUID, saved models.RequestFields) (models.RequestFields, error) {
	args := m.Called(ctx, requestID, saved)
	return args.Get(0).(models.RequestFields), args.Error(1)
}

// MockSSEHub mocks the SSE Hub
type MockSSEHub struct {
	mock.Mock
}

func (m *MockSSEHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockSSEHub) Unregister(client *sse.Client) {
	m.Called(client)
}

func (m *MockSSEHub) Subscribe(clientID string, userID, collectionID uuid.UUID) bool {
	return m.Called(clientID, userID, collectionID).Bool(0)
}

func (m *MockSSEHub) Unsubscribe(clientID string, userID, collectionID uuid.UUID) {
	m.Called(clientID, userID, collectionID)
}

func (m *MockSSEHub) BroadcastRequestSent(e sse.RequestSentEvent) {
	m.Called(e)
}

func (m *MockSSEHub) BroadcastDraftSaved(e sse.DraftEvent) {
	m.Called(e)
}

func (m *MockSSEHub) BroadcastDraftApplied(e sse.DraftEvent) {
	m.Called(e)
}

func (m *MockSSEHub) BroadcastCollectionImported(userID uuid.UUID, e sse.CollectionImportedEvent) {
	m.Called(userID, e)
}
