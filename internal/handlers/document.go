package handlers

import (
	"strings"

	"github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

type DocumentHandler struct {
	documents DocumentServiceInterface
}

func NewDocumentHandler(documents DocumentServiceInterface) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) List(c *drift.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	docs, err := h.documents.ListByChapter(c.Request.Context(), chapterID)
	if err != nil {
		c.InternalServerError("failed to list documents")
		return
	}
	_ = c.JSON(200, docs)
}

// Upload stores the raw request body as a chapter document. The title
// defaults to the filename.
func (h *DocumentHandler) Upload(c *drift.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	filename := c.QueryParam("filename")
	title := strings.TrimSpace(c.QueryParam("title"))
	if title == "" {
		title = filename
	}
	if title == "" {
		c.BadRequest("title is required")
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), chapterID, title, middleware.GetUserID(c), services.Upload{
		Body:        c.Request.Body,
		Size:        c.Request.ContentLength,
		ContentType: c.GetHeader("Content-Type"),
		Filename:    filename,
	})
	if err != nil {
		writeError(c, err, "chapter", "upload document")
		return
	}
	_ = c.JSON(201, doc)
}

func (h *DocumentHandler) Delete(c *drift.Context) {
	id, ok := paramID(c, "id", "document")
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		writeError(c, err, "document", "delete document")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "document deleted"})
}
