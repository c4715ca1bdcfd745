package handlers

import (
	"context"
	"log/slog"

	"github.com/dimitrije/nikode-engine/internal/draft"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// EditDraft records the current form state. The write to the store happens
// once the edits go quiet.
func (h *RequestHandler) EditDraft(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	var body dto.DraftEditRequest
	if err := c.BindJSON(&body); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	changed := h.tracker.Edit(req.ID, req.Saved, body.Fields)

	_ = c.JSON(202, dto.DraftEditResponse{
		HasDraftEdits: changed,
		Pending:       h.tracker.Pending(req.ID),
	})
}

// ApplyDraft promotes the effective fields to the saved form.
func (h *RequestHandler) ApplyDraft(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	current, _ := h.tracker.Current(req.ID, req.Fields())
	fields, err := h.tracker.Apply(c.Request.Context(), req.ID, current)
	if err != nil {
		h.logger.Error("draft apply failed", "request_id", req.ID, "error", err)
		c.InternalServerError("failed to apply draft")
		return
	}

	h.hub.BroadcastDraftApplied(sse.DraftEvent{
		RequestID:    req.ID,
		CollectionID: req.CollectionID,
	})

	_ = c.JSON(200, dto.DraftFieldsResponse{Fields: fields})
}

// RestoreDraft throws the draft away and returns the saved fields.
func (h *RequestHandler) RestoreDraft(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	fields, err := h.tracker.Restore(c.Request.Context(), req.ID, req.Saved)
	if err != nil {
		h.logger.Error("draft restore failed", "request_id", req.ID, "error", err)
		c.InternalServerError("failed to restore draft")
		return
	}

	h.hub.BroadcastDraftSaved(sse.DraftEvent{
		RequestID:    req.ID,
		CollectionID: req.CollectionID,
	})

	_ = c.JSON(200, dto.DraftFieldsResponse{Fields: fields})
}

func (h *RequestHandler) DiffDraft(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	current, _ := h.tracker.Current(req.ID, req.Fields())

	_ = c.JSON(200, dto.DraftDiffResponse{
		HasDraftEdits: draft.HasChanges(req.Saved, current),
		Diff:          draft.Diff(req.Saved, current),
	})
}

// DraftNotifier tells subscribers of the owning collection that a debounced
// draft write landed.
func DraftNotifier(requests RequestServiceInterface, hub SSEHubInterface, logger *slog.Logger) draft.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return func(requestID uuid.UUID, overlay *models.DraftOverlay) {
		req, err := requests.GetByID(context.Background(), requestID)
		if err != nil {
			logger.Warn("draft notification dropped", "request_id", requestID, "error", err)
			return
		}
		hub.BroadcastDraftSaved(sse.DraftEvent{
			RequestID:     requestID,
			CollectionID:  req.CollectionID,
			HasDraftEdits: overlay != nil,
		})
	}
}
