package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type CollectionHandler struct {
	collectionService CollectionServiceInterface
	folderService     FolderServiceInterface
	requestService    RequestServiceInterface
	environments      EnvironmentServiceInterface
}

func NewCollectionHandler(
	collectionService CollectionServiceInterface,
	folderService FolderServiceInterface,
	requestService RequestServiceInterface,
	environments EnvironmentServiceInterface,
) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		folderService:     folderService,
		requestService:    requestService,
		environments:      environments,
	}
}

// ownedCollection loads the collection named by the collectionId parameter and
// writes the error response itself when it is missing or not the caller's.
func ownedCollection(c *drift.Context, svc CollectionServiceInterface, userID uuid.UUID) (*models.Collection, bool) {
	collectionID, err := uuid.Parse(c.Param("collectionId"))
	if err != nil {
		c.BadRequest("invalid collection id")
		return nil, false
	}
	return loadOwnedCollection(c, svc, collectionID, userID)
}

func loadOwnedCollection(c *drift.Context, svc CollectionServiceInterface, collectionID, userID uuid.UUID) (*models.Collection, bool) {
	collection, err := svc.GetByID(c.Request.Context(), collectionID)
	if err != nil {
		if errors.Is(err, services.ErrCollectionNotFound) {
			c.NotFound("collection not found")
			return nil, false
		}
		c.InternalServerError("failed to get collection")
		return nil, false
	}
	// other owners' collections are reported as missing
	if collection.OwnerID != userID {
		c.NotFound("collection not found")
		return nil, false
	}
	return collection, true
}

func (h *CollectionHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateCollectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	collection, err := h.collectionService.Create(c.Request.Context(), userID, req.Name, req.Description, req.Variables)
	if err != nil {
		c.InternalServerError("failed to create collection")
		return
	}

	_ = c.JSON(201, collection)
}

func (h *CollectionHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collections, err := h.collectionService.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.InternalServerError("failed to get collections")
		return
	}
	if collections == nil {
		collections = []models.Collection{}
	}

	_ = c.JSON(200, collections)
}

func (h *CollectionHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collection, ok := ownedCollection(c, h.collectionService, userID)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	folders, err := h.folderService.ListByCollection(ctx, collection.ID)
	if err != nil {
		c.InternalServerError("failed to get folders")
		return
	}

	requests, err := h.requestService.ListByCollection(ctx, collection.ID)
	if err != nil {
		c.InternalServerError("failed to get requests")
		return
	}

	if folders == nil {
		folders = []models.Folder{}
	}
	if requests == nil {
		requests = []models.Request{}
	}

	_ = c.JSON(200, dto.CollectionDetailResponse{
		Collection: *collection,
		Folders:    folders,
		Requests:   requests,
	})
}

func (h *CollectionHandler) Update(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collection, ok := ownedCollection(c, h.collectionService, userID)
	if !ok {
		return
	}

	var req dto.UpdateCollectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Empty() {
		c.BadRequest("no fields to update")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.BadRequest("name cannot be empty")
		return
	}

	ctx := c.Request.Context()

	if req.EnvironmentID != nil && !h.ownsEnvironment(ctx, *req.EnvironmentID, userID) {
		c.NotFound("environment not found")
		return
	}

	updated, err := h.collectionService.Update(ctx, collection.ID, services.CollectionUpdate{
		Name:            req.Name,
		Description:     req.Description,
		EnvironmentID:   req.EnvironmentID,
		UnlinkEnv:       req.UnlinkEnvironment,
		Variables:       req.Variables,
		FollowRedirects: req.FollowRedirects,
		Timeout:         req.Timeout,
		ParseANSIColors: req.ParseANSIColors,
	})
	if err != nil {
		if errors.Is(err, services.ErrCollectionNotFound) {
			c.NotFound("collection not found")
			return
		}
		if errors.Is(err, services.ErrNoFieldsToUpdate) {
			c.BadRequest("no fields to update")
			return
		}
		c.InternalServerError("failed to update collection")
		return
	}

	_ = c.JSON(200, updated)
}

func (h *CollectionHandler) ownsEnvironment(ctx context.Context, environmentID, userID uuid.UUID) bool {
	env, err := h.environments.GetByID(ctx, environmentID)
	return err == nil && env.OwnerID == userID
}

func (h *CollectionHandler) Delete(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collection, ok := ownedCollection(c, h.collectionService, userID)
	if !ok {
		return
	}

	if err := h.collectionService.Delete(c.Request.Context(), collection.ID); err != nil {
		if errors.Is(err, services.ErrCollectionNotFound) {
			c.NotFound("collection not found")
			return
		}
		c.InternalServerError("failed to delete collection")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "collection deleted"})
}
