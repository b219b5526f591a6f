package handlers

import (
	"errors"

	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// CatalogHandler serves the class, subject and chapter tree.
type CatalogHandler struct {
	catalog CatalogServiceInterface
}

func NewCatalogHandler(catalog CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListClasses(c *drift.Context) {
	classes, err := h.catalog.ListClasses(c.Request.Context())
	if err != nil {
		c.InternalServerError("failed to list classes")
		return
	}
	_ = c.JSON(200, classes)
}

func (h *CatalogHandler) CreateClass(c *drift.Context) {
	var req dto.ClassRequest
	if !bind(c, &req) {
		return
	}

	class, err := h.catalog.CreateClass(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err, "class", "create class")
		return
	}
	_ = c.JSON(201, class)
}

func (h *CatalogHandler) UpdateClass(c *drift.Context) {
	id, ok := paramID(c, "id", "class")
	if !ok {
		return
	}

	var req dto.ClassRequest
	if !bind(c, &req) {
		return
	}

	class, err := h.catalog.UpdateClass(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		writeError(c, err, "class", "update class")
		return
	}
	_ = c.JSON(200, class)
}

func (h *CatalogHandler) DeleteClass(c *drift.Context) {
	id, ok := paramID(c, "id", "class")
	if !ok {
		return
	}

	if err := h.catalog.DeleteClass(c.Request.Context(), id); err != nil {
		writeError(c, err, "class", "delete class")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "class deleted"})
}

func (h *CatalogHandler) ListSubjects(c *drift.Context) {
	classID, ok := paramID(c, "id", "class")
	if !ok {
		return
	}

	subjects, err := h.catalog.ListSubjects(c.Request.Context(), classID)
	if err != nil {
		c.InternalServerError("failed to list subjects")
		return
	}
	_ = c.JSON(200, subjects)
}

func (h *CatalogHandler) CreateSubject(c *drift.Context) {
	classID, ok := paramID(c, "id", "class")
	if !ok {
		return
	}

	var req dto.SubjectRequest
	if !bind(c, &req) {
		return
	}

	subject, err := h.catalog.CreateSubject(c.Request.Context(), classID, req.Name, req.Description)
	if errors.Is(err, services.ErrNotFound) {
		c.NotFound("class not found")
		return
	}
	if err != nil {
		writeError(c, err, "subject", "create subject")
		return
	}
	_ = c.JSON(201, subject)
}

func (h *CatalogHandler) UpdateSubject(c *drift.Context) {
	id, ok := paramID(c, "id", "subject")
	if !ok {
		return
	}

	var req dto.SubjectRequest
	if !bind(c, &req) {
		return
	}

	subject, err := h.catalog.UpdateSubject(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		writeError(c, err, "subject", "update subject")
		return
	}
	_ = c.JSON(200, subject)
}

func (h *CatalogHandler) DeleteSubject(c *drift.Context) {
	id, ok := paramID(c, "id", "subject")
	if !ok {
		return
	}

	if err := h.catalog.DeleteSubject(c.Request.Context(), id); err != nil {
		writeError(c, err, "subject", "delete subject")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "subject deleted"})
}

func (h *CatalogHandler) ListChapters(c *drift.Context) {
	subjectID, ok := paramID(c, "id", "subject")
	if !ok {
		return
	}

	chapters, err := h.catalog.ListChapters(c.Request.Context(), subjectID)
	if err != nil {
		c.InternalServerError("failed to list chapters")
		return
	}
	_ = c.JSON(200, chapters)
}

func (h *CatalogHandler) CreateChapter(c *drift.Context) {
	subjectID, ok := paramID(c, "id", "subject")
	if !ok {
		return
	}

	var req dto.ChapterRequest
	if !bind(c, &req) {
		return
	}

	chapter, err := h.catalog.CreateChapter(c.Request.Context(), subjectID, req.Name, req.Position)
	if err != nil {
		writeError(c, err, "subject", "create chapter")
		return
	}
	_ = c.JSON(201, chapter)
}
