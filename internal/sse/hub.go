package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const (
	EventRequestSent        = "request_sent"
	EventDraftSaved         = "draft_saved"
	EventDraftApplied       = "draft_applied"
	EventCollectionImported = "collection_imported"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type RequestSentEvent struct {
	RequestID    uuid.UUID `json:"request_id"`
	CollectionID uuid.UUID `json:"collection_id"`
	State        string    `json:"state"`
	Status       int       `json:"status,omitempty"`
	ErrorType    string    `json:"error_type,omitempty"`
	TimeMs       float64   `json:"time_ms,omitempty"`
}

type DraftEvent struct {
	RequestID     uuid.UUID `json:"request_id"`
	CollectionID  uuid.UUID `json:"collection_id"`
	HasDraftEdits bool      `json:"has_draft_edits"`
}

type CollectionImportedEvent struct {
	CollectionID uuid.UUID `json:"collection_id"`
	Name         string    `json:"name"`
	Folders      int       `json:"folders"`
	Requests     int       `json:"requests"`
}

type Client struct {
	ID          string
	UserID      uuid.UUID
	Collections map[uuid.UUID]bool
	Send        chan []byte
}

// message goes either to subscribers of a collection or, when CollectionID
// is nil, to every client of UserID.
type message struct {
	CollectionID uuid.UUID
	UserID       uuid.UUID
	Event        Event
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *message
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *message, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if !msg.matches(client) {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (m *message) matches(c *Client) bool {
	if m.CollectionID != uuid.Nil {
		return c.Collections[m.CollectionID]
	}
	return c.UserID == m.UserID
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a collection to a client's feed. It reports false for an
// unknown client or one owned by another user.
func (h *Hub) Subscribe(clientID string, userID, collectionID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok || client.UserID != userID {
		return false
	}
	client.Collections[collectionID] = true
	return true
}

func (h *Hub) Unsubscribe(clientID string, userID, collectionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok && client.UserID == userID {
		delete(client.Collections, collectionID)
	}
}

func (h *Hub) BroadcastRequestSent(e RequestSentEvent) {
	h.broadcast <- &message{CollectionID: e.CollectionID, Event: Event{Type: EventRequestSent, Data: e}}
}

func (h *Hub) BroadcastDraftSaved(e DraftEvent) {
	h.broadcast <- &message{CollectionID: e.CollectionID, Event: Event{Type: EventDraftSaved, Data: e}}
}

func (h *Hub) BroadcastDraftApplied(e DraftEvent) {
	h.broadcast <- &message{CollectionID: e.CollectionID, Event: Event{Type: EventDraftApplied, Data: e}}
}

func (h *Hub) BroadcastCollectionImported(userID uuid.UUID, e CollectionImportedEvent) {
	h.broadcast <- &message{UserID: userID, Event: Event{Type: EventCollectionImported, Data: e}}
}
