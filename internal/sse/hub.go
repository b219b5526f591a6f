package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const (
	EventVideoPublished    = "video_published"
	EventVideoDeleted      = "video_deleted"
	EventDocumentPublished = "document_published"
	EventDocumentDeleted   = "document_deleted"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ContentEvent announces a change to a video or document within a class.
type ContentEvent struct {
	ID        uuid.UUID  `json:"id"`
	ClassID   uuid.UUID  `json:"class_id"`
	ChapterID *uuid.UUID `json:"chapter_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	URL       string     `json:"url,omitempty"`
	ActorID   uuid.UUID  `json:"actor_id"`
}

type Client struct {
	ID      string
	UserID  uuid.UUID
	Classes map[uuid.UUID]bool
	Send    chan []byte
}

type ClassMessage struct {
	ClassID uuid.UUID
	Event   Event
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *ClassMessage
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ClassMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run owns registration and fan-out until ctx is cancelled, then closes
// every client's Send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

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
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.Classes[msg.ClassID] {
					select {
					case client.Send <- data:
					default:
						// slow client, drop
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) SubscribeToClass(clientID string, classID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		client.Classes[classID] = true
	}
}

func (h *Hub) UnsubscribeFromClass(clientID string, classID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Classes, classID)
	}
}

// Publish queues ev for subscribers of the event's class. It never blocks
// the caller once the hub has stopped.
func (h *Hub) Publish(eventType string, ev ContentEvent) {
	msg := &ClassMessage{
		ClassID: ev.ClassID,
		Event:   Event{Type: eventType, Data: ev},
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
