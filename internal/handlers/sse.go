package handlers

import (
	"fmt"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SSEHandler struct {
	hub               SSEHubInterface
	collectionService CollectionServiceInterface
}

func NewSSEHandler(hub SSEHubInterface, collectionService CollectionServiceInterface) *SSEHandler {
	return &SSEHandler{
		hub:               hub,
		collectionService: collectionService,
	}
}

// Connect opens the caller's event stream. User-level events arrive right
// away. Collections listed in ?collections=a,b are subscribed up front; others
// need a Subscribe with the returned client id.
func (h *SSEHandler) Connect(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	collections, ok := h.initialCollections(c, userID)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:          clientID,
		UserID:      userID,
		Collections: collections,
		Send:        make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// initialCollections parses ?collections= and checks each id is owned by
// userID. It writes the error response itself when it reports false.
func (h *SSEHandler) initialCollections(c *drift.Context, userID uuid.UUID) (map[uuid.UUID]bool, bool) {
	collections := make(map[uuid.UUID]bool)
	raw := c.QueryParam("collections")
	if raw == "" {
		return collections, true
	}

	for _, part := range strings.Split(raw, ",") {
		collectionID, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			c.BadRequest("invalid collection id")
			return nil, false
		}
		isOwner, err := h.collectionService.IsOwner(c.Request.Context(), collectionID, userID)
		if err != nil || !isOwner {
			c.NotFound("collection not found")
			return nil, false
		}
		collections[collectionID] = true
	}
	return collections, true
}

func (h *SSEHandler) Subscribe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}

	collectionID, err := uuid.Parse(c.Param("collectionId"))
	if err != nil {
		c.BadRequest("invalid collection id")
		return
	}

	isOwner, err := h.collectionService.IsOwner(c.Request.Context(), collectionID, userID)
	if err != nil || !isOwner {
		c.NotFound("collection not found")
		return
	}

	if !h.hub.Subscribe(clientID, userID, collectionID) {
		c.NotFound("client not found")
		return
	}

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("subscribed to collection %s", collectionID),
	})
}

func (h *SSEHandler) Unsubscribe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}

	collectionID, err := uuid.Parse(c.Param("collectionId"))
	if err != nil {
		c.BadRequest("invalid collection id")
		return
	}

	h.hub.Unsubscribe(clientID, userID, collectionID)

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("unsubscribed from collection %s", collectionID),
	})
}
