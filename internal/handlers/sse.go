package handlers

import (
	"fmt"

	"github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SSEHandler struct {
	hub     HubInterface
	catalog CatalogServiceInterface
}

func NewSSEHandler(hub HubInterface, catalog CatalogServiceInterface) *SSEHandler {
	return &SSEHandler{
		hub:     hub,
		catalog: catalog,
	}
}

// Connect streams content events for one class until the client goes away.
// Further classes can be added to the same stream with Subscribe.
func (h *SSEHandler) Connect(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	classID, ok := h.class(c)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:      clientID,
		UserID:  userID,
		Classes: map[uuid.UUID]bool{classID: true},
		Send:    make(chan []byte, 256),
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

func (h *SSEHandler) Subscribe(c *drift.Context) {
	clientID, classID, ok := h.subscription(c)
	if !ok {
		return
	}

	h.hub.SubscribeToClass(clientID, classID)

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("subscribed to class %s", classID),
	})
}

func (h *SSEHandler) Unsubscribe(c *drift.Context) {
	clientID, classID, ok := h.subscription(c)
	if !ok {
		return
	}

	h.hub.UnsubscribeFromClass(clientID, classID)

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("unsubscribed from class %s", classID),
	})
}

func (h *SSEHandler) subscription(c *drift.Context) (string, uuid.UUID, bool) {
	if middleware.GetUserID(c) == uuid.Nil {
		c.Unauthorized("not authenticated")
		return "", uuid.Nil, false
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return "", uuid.Nil, false
	}

	classID, ok := h.class(c)
	return clientID, classID, ok
}

func (h *SSEHandler) class(c *drift.Context) (uuid.UUID, bool) {
	classID, ok := paramID(c, "id", "class")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.catalog.GetClass(c.Request.Context(), classID); err != nil {
		writeError(c, err, "class", "load class")
		return uuid.Nil, false
	}
	return classID, true
}
