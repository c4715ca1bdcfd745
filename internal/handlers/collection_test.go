package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/dimitrije/nikode-engine/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type collectionMocks struct {
	collections  *testutil.MockCollectionService
	folders      *testutil.MockFolderService
	requests     *testutil.MockRequestService
	environments *testutil.MockEnvironmentService
}

func setupCollectionTest(t *testing.T) (collectionMocks, *CollectionHandler, *services.JWTService) {
	t.Helper()
	m := collectionMocks{
		collections:  new(testutil.MockCollectionService),
		folders:      new(testutil.MockFolderService),
		requests:     new(testutil.MockRequestService),
		environments: new(testutil.MockEnvironmentService),
	}
	handler := NewCollectionHandler(m.collections, m.folders, m.requests, m.environments)
	return m, handler, newTestJWTService()
}

func collectionApp(handler *CollectionHandler, jwtSvc *services.JWTService) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/collections", handler.List)
	app.Post("/collections", handler.Create)
	app.Get("/collections/:collectionId", handler.Get)
	app.Patch("/collections/:collectionId", handler.Update)
	app.Delete("/collections/:collectionId", handler.Delete)
	return app
}

func TestCollectionHandler_Create_Success(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)

	m.collections.On("Create", mock.Anything, userID, "Users API", "", []models.Variable(nil)).Return(collection, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodPost, "/collections",
		dto.CreateCollectionRequest{Name: "Users API"})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response models.Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, collection.ID, response.ID)
	assert.Equal(t, userID, response.OwnerID)

	m.collections.AssertExpectations(t)
}

func TestCollectionHandler_Create_EmptyName(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, uuid.New(), http.MethodPost, "/collections",
		dto.CreateCollectionRequest{Name: "  "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
	m.collections.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCollectionHandler_List_Empty(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()

	m.collections.On("ListByOwner", mock.Anything, userID).Return(nil, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodGet, "/collections", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCollectionHandler_Get_WithTree(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)
	folder := models.Folder{ID: uuid.New(), CollectionID: collection.ID, Name: "users"}
	request := testRequest(collection.ID)
	request.FolderID = &folder.ID

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)
	m.folders.On("ListByCollection", mock.Anything, collection.ID).Return([]models.Folder{folder}, nil)
	m.requests.On("ListByCollection", mock.Anything, collection.ID).Return([]models.Request{*request}, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodGet, "/collections/"+collection.ID.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		ID       uuid.UUID `json:"id"`
		Folders  []models.Folder
		Requests []struct {
			ID            uuid.UUID `json:"id"`
			HasDraftEdits bool      `json:"has_draft_edits"`
		}
	}
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, collection.ID, response.ID)
	require.Len(t, response.Folders, 1)
	require.Len(t, response.Requests, 1)
	assert.Equal(t, request.ID, response.Requests[0].ID)
	assert.False(t, response.Requests[0].HasDraftEdits)
}

func TestCollectionHandler_Get_OtherOwner(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	collection := testCollection(uuid.New())

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, uuid.New(), http.MethodGet, "/collections/"+collection.ID.String(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "collection not found")
	m.folders.AssertNotCalled(t, "ListByCollection", mock.Anything, mock.Anything)
}

func TestCollectionHandler_Get_InvalidID(t *testing.T) {
	_, handler, jwtSvc := setupCollectionTest(t)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, uuid.New(), http.MethodGet, "/collections/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid collection id")
}

func TestCollectionHandler_Update_LinksEnvironment(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)
	env := &models.Environment{ID: uuid.New(), OwnerID: userID, Name: "staging"}
	timeout := 500

	updated := *collection
	updated.EnvironmentID = &env.ID
	updated.Timeout = models.MaxTimeoutSeconds

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)
	m.environments.On("GetByID", mock.Anything, env.ID).Return(env, nil)
	m.collections.On("Update", mock.Anything, collection.ID, services.CollectionUpdate{
		EnvironmentID: &env.ID,
		Timeout:       &timeout,
	}).Return(&updated, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodPatch, "/collections/"+collection.ID.String(),
		dto.UpdateCollectionRequest{EnvironmentID: &env.ID, Timeout: &timeout})

	require.Equal(t, http.StatusOK, rec.Code)

	var response models.Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, models.MaxTimeoutSeconds, response.Timeout)
	require.NotNil(t, response.EnvironmentID)
	assert.Equal(t, env.ID, *response.EnvironmentID)

	m.collections.AssertExpectations(t)
	m.environments.AssertExpectations(t)
}

func TestCollectionHandler_Update_ForeignEnvironment(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)
	env := &models.Environment{ID: uuid.New(), OwnerID: uuid.New(), Name: "theirs"}

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)
	m.environments.On("GetByID", mock.Anything, env.ID).Return(env, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodPatch, "/collections/"+collection.ID.String(),
		dto.UpdateCollectionRequest{EnvironmentID: &env.ID})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "environment not found")
	m.collections.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCollectionHandler_Update_NoFields(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodPatch, "/collections/"+collection.ID.String(),
		map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no fields to update")
}

func TestCollectionHandler_Delete(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	userID := uuid.New()
	collection := testCollection(userID)

	m.collections.On("GetByID", mock.Anything, collection.ID).Return(collection, nil)
	m.collections.On("Delete", mock.Anything, collection.ID).Return(nil)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, userID, http.MethodDelete, "/collections/"+collection.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "collection deleted")
	m.collections.AssertExpectations(t)
}

func TestCollectionHandler_NotFound(t *testing.T) {
	m, handler, jwtSvc := setupCollectionTest(t)
	collectionID := uuid.New()

	m.collections.On("GetByID", mock.Anything, collectionID).Return(nil, services.ErrCollectionNotFound)

	rec := doJSON(t, collectionApp(handler, jwtSvc), jwtSvc, uuid.New(), http.MethodDelete, "/collections/"+collectionID.String(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
