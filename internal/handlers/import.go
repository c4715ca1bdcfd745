package handlers

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/importer"
	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	FormatOpenAPI = "openapi"
	FormatPostman = "postman"
)

// maxImportSize bounds raw document bodies.
const maxImportSize = 10 << 20

type ImportHandler struct {
	importers     map[string]Importer
	importService ImportServiceInterface
	hub           SSEHubInterface
	logger        *slog.Logger
}

func NewImportHandler(importers map[string]Importer, importService ImportServiceInterface, hub SSEHubInterface, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importers:     importers,
		importService: importService,
		hub:           hub,
		logger:        logger,
	}
}

func (h *ImportHandler) ImportOpenAPI(c *drift.Context) {
	h.importAs(c, FormatOpenAPI)
}

func (h *ImportHandler) ImportPostman(c *drift.Context) {
	h.importAs(c, FormatPostman)
}

func (h *ImportHandler) importAs(c *drift.Context, format string) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	imp, ok := h.importers[format]
	if !ok {
		c.BadRequest("unsupported import format: " + format)
		return
	}

	content, name, ok := readDocument(c)
	if !ok {
		return
	}

	result, err := imp.Import(content, name)
	if err != nil {
		if errors.Is(err, importer.ErrSpecFormat) ||
			errors.Is(err, importer.ErrSchema) ||
			errors.Is(err, importer.ErrUnsupportedVersion) {
			c.BadRequest("invalid " + format + " document: " + err.Error())
			return
		}
		h.logger.Error("import failed", "format", format, "error", err)
		c.InternalServerError("failed to import document")
		return
	}

	collection, err := h.importService.Persist(c.Request.Context(), userID, result)
	if err != nil {
		h.logger.Error("import persist failed", "format", format, "error", err)
		c.InternalServerError("failed to store imported collection")
		return
	}

	h.logger.Info("collection imported",
		"collection_id", collection.ID,
		"format", format,
		"folders", len(result.Folders),
		"requests", len(result.Requests),
	)

	h.hub.BroadcastCollectionImported(userID, sse.CollectionImportedEvent{
		CollectionID: collection.ID,
		Name:         collection.Name,
		Folders:      len(result.Folders),
		Requests:     len(result.Requests),
	})

	_ = c.JSON(201, dto.ImportResponse{
		Collection: collection,
		Folders:    len(result.Folders),
		Requests:   len(result.Requests),
	})
}

// readDocument accepts either a JSON ImportRequest envelope or the raw
// document as the body with the name in ?name=.
func readDocument(c *drift.Context) ([]byte, string, bool) {
	if strings.Contains(c.GetHeader("Content-Type"), "application/json") {
		var req dto.ImportRequest
		if err := c.BindJSON(&req); err != nil {
			c.BadRequest("invalid request body")
			return nil, "", false
		}
		content := req.Document()
		if len(content) == 0 {
			c.BadRequest("content is required")
			return nil, "", false
		}
		return content, req.Name, true
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.BadRequest("failed to read request body")
		return nil, "", false
	}
	if len(body) == 0 {
		c.BadRequest("content is required")
		return nil, "", false
	}
	return body, c.QueryParam("name"), true
}
