package handlers

import (
	"errors"

	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type FolderHandler struct {
	folderService     FolderServiceInterface
	collectionService CollectionServiceInterface
}

func NewFolderHandler(folderService FolderServiceInterface, collectionService CollectionServiceInterface) *FolderHandler {
	return &FolderHandler{
		folderService:     folderService,
		collectionService: collectionService,
	}
}

func (h *FolderHandler) Move(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	folderID, err := uuid.Parse(c.Param("folderId"))
	if err != nil {
		c.BadRequest("invalid folder id")
		return
	}

	var req dto.MoveFolderRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()

	folder, err := h.folderService.GetByID(ctx, folderID)
	if err != nil {
		c.NotFound("folder not found")
		return
	}

	isOwner, err := h.collectionService.IsOwner(ctx, folder.CollectionID, userID)
	if err != nil || !isOwner {
		c.NotFound("folder not found")
		return
	}

	moved, err := h.folderService.Move(ctx, folderID, req.ParentFolderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFolderNotFound):
			c.NotFound("folder not found")
		case errors.Is(err, services.ErrFolderCycle):
			c.BadRequest("a folder cannot be moved into itself or its descendants")
		case errors.Is(err, services.ErrFolderCrossCollection):
			c.BadRequest("target folder belongs to another collection")
		default:
			c.InternalServerError("failed to move folder")
		}
		return
	}

	_ = c.JSON(200, moved)
}
