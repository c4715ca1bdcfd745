package handlers

import (
	"errors"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// EnvironmentHandler manages environments and the secrets held by
// environments and collections. Secret values are write-only over HTTP.
type EnvironmentHandler struct {
	environmentService EnvironmentServiceInterface
	secretService      SecretServiceInterface
	collectionService  CollectionServiceInterface
}

func NewEnvironmentHandler(
	environmentService EnvironmentServiceInterface,
	secretService SecretServiceInterface,
	collectionService CollectionServiceInterface,
) *EnvironmentHandler {
	return &EnvironmentHandler{
		environmentService: environmentService,
		secretService:      secretService,
		collectionService:  collectionService,
	}
}

func (h *EnvironmentHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateEnvironmentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	env, err := h.environmentService.Create(c.Request.Context(), userID, req.Name)
	if err != nil {
		c.InternalServerError("failed to create environment")
		return
	}

	_ = c.JSON(201, env)
}

func (h *EnvironmentHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	envs, err := h.environmentService.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.InternalServerError("failed to get environments")
		return
	}
	if envs == nil {
		envs = []models.Environment{}
	}

	_ = c.JSON(200, envs)
}

func (h *EnvironmentHandler) ownedEnvironment(c *drift.Context, userID uuid.UUID) (*models.Environment, bool) {
	environmentID, err := uuid.Parse(c.Param("environmentId"))
	if err != nil {
		c.BadRequest("invalid environment id")
		return nil, false
	}

	env, err := h.environmentService.GetByID(c.Request.Context(), environmentID)
	if err != nil || env.OwnerID != userID {
		c.NotFound("environment not found")
		return nil, false
	}
	return env, true
}

func (h *EnvironmentHandler) SetEnvironmentSecret(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	env, ok := h.ownedEnvironment(c, userID)
	if !ok {
		return
	}

	var req dto.SetSecretRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	err := h.secretService.SetEnvironmentSecret(c.Request.Context(), env.ID, c.Param("key"), req.Value)
	respondSecretWrite(c, err, "secret stored")
}

func (h *EnvironmentHandler) DeleteEnvironmentSecret(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	env, ok := h.ownedEnvironment(c, userID)
	if !ok {
		return
	}

	err := h.secretService.DeleteEnvironmentSecret(c.Request.Context(), env.ID, c.Param("key"))
	respondSecretWrite(c, err, "secret deleted")
}

func (h *EnvironmentHandler) SetCollectionSecret(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collection, ok := ownedCollection(c, h.collectionService, userID)
	if !ok {
		return
	}

	var req dto.SetSecretRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	err := h.secretService.SetCollectionSecret(c.Request.Context(), collection.ID, c.Param("key"), req.Value)
	respondSecretWrite(c, err, "secret stored")
}

func (h *EnvironmentHandler) DeleteCollectionSecret(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collection, ok := ownedCollection(c, h.collectionService, userID)
	if !ok {
		return
	}

	err := h.secretService.DeleteCollectionSecret(c.Request.Context(), collection.ID, c.Param("key"))
	respondSecretWrite(c, err, "secret deleted")
}

func respondSecretWrite(c *drift.Context, err error, message string) {
	switch {
	case err == nil:
		_ = c.JSON(200, map[string]string{"message": message})
	case errors.Is(err, services.ErrEmptySecretKey):
		c.BadRequest("secret key is required")
	case errors.Is(err, services.ErrSecretNotFound):
		c.NotFound("secret not found")
	default:
		c.InternalServerError("failed to update secret")
	}
}
