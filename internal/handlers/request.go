package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dimitrije/nikode-engine/internal/dispatch"
	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type RequestHandler struct {
	requestService    RequestServiceInterface
	collectionService CollectionServiceInterface
	resolver          ResolverInterface
	dispatcher        DispatcherInterface
	tracker           DraftTrackerInterface
	hub               SSEHubInterface
	logger            *slog.Logger
	now               func() time.Time
}

func NewRequestHandler(
	requestService RequestServiceInterface,
	collectionService CollectionServiceInterface,
	resolver ResolverInterface,
	dispatcher DispatcherInterface,
	tracker DraftTrackerInterface,
	hub SSEHubInterface,
	logger *slog.Logger,
) *RequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestHandler{
		requestService:    requestService,
		collectionService: collectionService,
		resolver:          resolver,
		dispatcher:        dispatcher,
		tracker:           tracker,
		hub:               hub,
		logger:            logger,
		now:               time.Now,
	}
}

// ownedRequest loads the request named by the requestId parameter together
// with its collection, writing the error response when either is missing or
// belongs to someone else.
func (h *RequestHandler) ownedRequest(c *drift.Context) (*models.Request, *models.Collection, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return nil, nil, false
	}

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.BadRequest("invalid request id")
		return nil, nil, false
	}

	req, err := h.requestService.GetByID(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			c.NotFound("request not found")
			return nil, nil, false
		}
		c.InternalServerError("failed to get request")
		return nil, nil, false
	}

	collection, err := h.collectionService.GetByID(c.Request.Context(), req.CollectionID)
	if err != nil || collection.OwnerID != userID {
		c.NotFound("request not found")
		return nil, nil, false
	}

	return req, collection, true
}

func (h *RequestHandler) Get(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	_ = c.JSON(200, req)
}

// Resolved previews the request with every known variable substituted.
func (h *RequestHandler) Resolved(c *drift.Context) {
	req, collection, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	lookup, err := h.resolver.Lookup(c.Request.Context(), collection)
	if err != nil {
		c.InternalServerError("failed to resolve variables")
		return
	}

	fields, _ := h.tracker.Current(req.ID, req.Fields())
	unresolved := lookup.UnresolvedFields(fields)

	_ = c.JSON(200, dto.ResolvedRequestResponse{
		Fields:     lookup.Apply(fields),
		Unresolved: unresolved,
	})
}

// Send resolves the effective fields and runs them through the request's
// dispatcher, answering with the single outcome of the send.
func (h *RequestHandler) Send(c *drift.Context) {
	req, collection, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	lookup, err := h.resolver.Lookup(ctx, collection)
	if err != nil {
		c.InternalServerError("failed to resolve variables")
		return
	}

	fields, _ := h.tracker.Current(req.ID, req.Fields())
	outcome, err := h.dispatcher.Send(ctx, req.ID, lookup.Apply(fields), dispatch.SendOptions{
		TimeoutSeconds:  collection.TimeoutSeconds(),
		FollowRedirects: collection.FollowRedirects,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrInFlight) {
			_ = c.JSON(409, map[string]string{
				"code":    "REQUEST_IN_FLIGHT",
				"message": err.Error(),
			})
			return
		}
		c.InternalServerError("failed to send request")
		return
	}

	if snapshot := outcome.Snapshot(h.now()); snapshot != nil {
		if err := h.requestService.SaveSnapshot(ctx, req.ID, snapshot); err != nil {
			h.logger.Warn("failed to store response snapshot", "request_id", req.ID, "error", err)
		}
	}

	h.hub.BroadcastRequestSent(sse.RequestSentEvent{
		RequestID:    req.ID,
		CollectionID: req.CollectionID,
		State:        string(outcome.State),
		Status:       outcome.Status,
		ErrorType:    outcome.ErrorType,
		TimeMs:       outcome.TimeMs,
	})

	_ = c.JSON(200, outcome)
}

func (h *RequestHandler) Cancel(c *drift.Context) {
	req, _, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	_ = c.JSON(200, dto.CancelResponse{Cancelled: h.dispatcher.Cancel(req.ID)})
}
