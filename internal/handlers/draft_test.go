package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/nikode-engine/internal/draft"
	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/dimitrije/nikode-engine/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequestHandler_EditDraft(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	_, req := m.owned(userID)

	current := req.Saved.Clone()
	current.URL = "{{baseUrl}}/users/:id/profile"

	m.tracker.On("Edit", req.ID, req.Saved, mock.MatchedBy(func(f models.RequestFields) bool {
		return f.URL == current.URL
	})).Return(true)
	m.tracker.On("Pending", req.ID).Return(true)

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPatch, "/requests/"+req.ID.String()+"/draft",
		dto.DraftEditRequest{Fields: current})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"has_draft_edits":true,"pending":true}`, rec.Body.String())
	m.tracker.AssertExpectations(t)
}

func TestRequestHandler_ApplyDraft(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	collection, req := m.owned(userID)

	pending := req.Fields()
	pending.Method = "POST"

	m.tracker.On("Current", req.ID, req.Fields()).Return(pending, true)
	m.tracker.On("Apply", mock.Anything, req.ID, pending).Return(pending, nil)
	m.hub.On("BroadcastDraftApplied", sse.DraftEvent{RequestID: req.ID, CollectionID: collection.ID}).Return()

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPost, "/requests/"+req.ID.String()+"/draft/apply", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.DraftFieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "POST", response.Fields.Method)
	m.tracker.AssertExpectations(t)
	m.hub.AssertExpectations(t)
}

func TestRequestHandler_ApplyDraft_StoreError(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	_, req := m.owned(userID)

	m.tracker.On("Current", req.ID, req.Fields()).Return(req.Fields(), false)
	m.tracker.On("Apply", mock.Anything, req.ID, req.Fields()).Return(models.RequestFields{}, errors.New("db down"))

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPost, "/requests/"+req.ID.String()+"/draft/apply", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	m.hub.AssertNotCalled(t, "BroadcastDraftApplied", mock.Anything)
}

func TestRequestHandler_RestoreDraft(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	collection, req := m.owned(userID)

	m.tracker.On("Restore", mock.Anything, req.ID, req.Saved).Return(req.Saved.Clone(), nil)
	m.hub.On("BroadcastDraftSaved", sse.DraftEvent{RequestID: req.ID, CollectionID: collection.ID}).Return()

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPost, "/requests/"+req.ID.String()+"/draft/restore", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.DraftFieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, req.Saved.URL, response.Fields.URL)
	m.hub.AssertExpectations(t)
}

func TestRequestHandler_DiffDraft(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	_, req := m.owned(userID)

	pending := req.Fields()
	pending.Method = "PUT"
	m.tracker.On("Current", req.ID, req.Fields()).Return(pending, true)

	rec := doJSON(t, app, jwtSvc, userID, http.MethodGet, "/requests/"+req.ID.String()+"/draft/diff", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.DraftDiffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.HasDraftEdits)
	assert.Contains(t, response.Diff, "-GET {{baseUrl}}/users/:id")
	assert.Contains(t, response.Diff, "+PUT {{baseUrl}}/users/:id")
}

func TestRequestHandler_DiffDraft_NoChanges(t *testing.T) {
	m, app, jwtSvc := setupRequestTest(t)
	userID := uuid.New()
	_, req := m.owned(userID)

	m.tracker.On("Current", req.ID, req.Fields()).Return(req.Fields(), false)

	rec := doJSON(t, app, jwtSvc, userID, http.MethodGet, "/requests/"+req.ID.String()+"/draft/diff", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_draft_edits":false,"diff":""}`, rec.Body.String())
}

func TestDraftNotifier(t *testing.T) {
	requests := new(testutil.MockRequestService)
	hub := new(testutil.MockSSEHub)
	collectionID := uuid.New()
	req := testRequest(collectionID)

	requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	hub.On("BroadcastDraftSaved", sse.DraftEvent{RequestID: req.ID, CollectionID: collectionID, HasDraftEdits: true}).Return().Once()
	hub.On("BroadcastDraftSaved", sse.DraftEvent{RequestID: req.ID, CollectionID: collectionID}).Return().Once()

	notify := DraftNotifier(requests, hub, nil)
	method := "POST"
	notify(req.ID, &models.DraftOverlay{Method: &method})
	notify(req.ID, nil)

	missing := uuid.New()
	requests.On("GetByID", mock.Anything, missing).Return(nil, errors.New("gone"))
	notify(missing, nil)

	hub.AssertExpectations(t)
}

type mockDraftStore struct {
	mock.Mock
}

func (m *mockDraftStore) SaveDraft(ctx context.Context, requestID uuid.UUID, overlay *models.DraftOverlay) error {
	args := m.Called(ctx, requestID, overlay)
	return args.Error(0)
}

func (m *mockDraftStore) ApplyDraft(ctx context.Context, requestID uuid.UUID, fields models.RequestFields) error {
	args := m.Called(ctx, requestID, fields)
	return args.Error(0)
}

// setupTrackedDraftTest serves the draft routes through a real tracker whose
// quiet period never elapses during the test.
func setupTrackedDraftTest(t *testing.T) (requestMocks, *mockDraftStore, http.Handler, *services.JWTService) {
	t.Helper()
	m := requestMocks{
		requests:    new(testutil.MockRequestService),
		collections: new(testutil.MockCollectionService),
		resolver:    new(testutil.MockResolver),
		dispatcher:  new(testutil.MockDispatcher),
		hub:         new(testutil.MockSSEHub),
	}
	store := new(mockDraftStore)
	tracker := draft.NewTracker(store, draft.WithQuietPeriod(time.Hour))
	handler := NewRequestHandler(m.requests, m.collections, m.resolver, m.dispatcher, tracker, m.hub, nil)
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Patch("/requests/:requestId/draft", handler.EditDraft)
	app.Post("/requests/:requestId/draft/apply", handler.ApplyDraft)
	app.Get("/requests/:requestId/draft/diff", handler.DiffDraft)
	return m, store, app, jwtSvc
}

func TestRequestHandler_ApplyDraft_RevertedFieldOverStoredDraft(t *testing.T) {
	m, store, app, jwtSvc := setupTrackedDraftTest(t)
	userID := uuid.New()
	collection, req := m.owned(userID)
	stale := "{{baseUrl}}/stale"
	req.Draft = &models.DraftOverlay{URL: &stale}

	edited := req.Saved.Clone()
	edited.Method = "POST"

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPatch, "/requests/"+req.ID.String()+"/draft",
		dto.DraftEditRequest{Fields: edited})
	require.Equal(t, http.StatusAccepted, rec.Code)

	store.On("ApplyDraft", mock.Anything, req.ID, mock.MatchedBy(func(f models.RequestFields) bool {
		return f.URL == req.Saved.URL && f.Method == "POST"
	})).Return(nil)
	m.hub.On("BroadcastDraftApplied", sse.DraftEvent{RequestID: req.ID, CollectionID: collection.ID}).Return()

	rec = doJSON(t, app, jwtSvc, userID, http.MethodPost, "/requests/"+req.ID.String()+"/draft/apply", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.DraftFieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "{{baseUrl}}/users/:id", response.Fields.URL)
	assert.Equal(t, "POST", response.Fields.Method)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveDraft", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestHandler_DiffDraft_RevertedEditOverStoredDraft(t *testing.T) {
	m, _, app, jwtSvc := setupTrackedDraftTest(t)
	userID := uuid.New()
	_, req := m.owned(userID)
	stale := "{{baseUrl}}/stale"
	req.Draft = &models.DraftOverlay{URL: &stale}

	rec := doJSON(t, app, jwtSvc, userID, http.MethodPatch, "/requests/"+req.ID.String()+"/draft",
		dto.DraftEditRequest{Fields: req.Saved.Clone()})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"has_draft_edits":false,"pending":true}`, rec.Body.String())

	rec = doJSON(t, app, jwtSvc, userID, http.MethodGet, "/requests/"+req.ID.String()+"/draft/diff", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_draft_edits":false,"diff":""}`, rec.Body.String())
}
