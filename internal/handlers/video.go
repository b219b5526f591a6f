package handlers

import (
	"strconv"
	"strings"

	"github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

type VideoHandler struct {
	videos VideoServiceInterface
}

func NewVideoHandler(videos VideoServiceInterface) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func (h *VideoHandler) List(c *drift.Context) {
	var f services.VideoFilter
	var ok bool
	if f.ClassID, ok = queryID(c, "class_id"); !ok {
		return
	}
	if f.SubjectID, ok = queryID(c, "subject_id"); !ok {
		return
	}
	if f.ChapterID, ok = queryID(c, "chapter_id"); !ok {
		return
	}
	f.ExamType = c.QueryParam("exam_type")
	f.Limit = queryInt(c, "limit", 0)

	videos, err := h.videos.List(c.Request.Context(), f)
	if err != nil {
		c.InternalServerError("failed to list videos")
		return
	}
	_ = c.JSON(200, videos)
}

func (h *VideoHandler) Get(c *drift.Context) {
	id, ok := paramID(c, "id", "video")
	if !ok {
		return
	}

	video, err := h.videos.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "video", "load video")
		return
	}
	_ = c.JSON(200, video)
}

// Upload takes the raw video as the request body. Metadata travels in the
// query string; the declared Content-Length bounds what is stored.
func (h *VideoHandler) Upload(c *drift.Context) {
	meta := services.NewVideo{
		Title:        strings.TrimSpace(c.QueryParam("title")),
		ExamType:     strings.TrimSpace(c.QueryParam("exam_type")),
		Description:  optional(c.QueryParam("description")),
		ThumbnailURL: optional(c.QueryParam("thumbnail_url")),
		UploadedBy:   middleware.GetUserID(c),
	}
	if meta.Title == "" || meta.ExamType == "" {
		c.BadRequest("title and exam_type are required")
		return
	}

	var ok bool
	if meta.ClassID, ok = queryID(c, "class_id"); !ok {
		return
	}
	if meta.SubjectID, ok = queryID(c, "subject_id"); !ok {
		return
	}
	if meta.ChapterID, ok = queryID(c, "chapter_id"); !ok {
		return
	}
	if raw := c.QueryParam("duration_seconds"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			c.BadRequest("invalid duration_seconds")
			return
		}
		meta.DurationSeconds = &d
	}

	video, err := h.videos.Upload(c.Request.Context(), meta, services.Upload{
		Body:        c.Request.Body,
		Size:        c.Request.ContentLength,
		ContentType: c.GetHeader("Content-Type"),
		Filename:    c.QueryParam("filename"),
	})
	if err != nil {
		writeError(c, err, "video", "upload video")
		return
	}
	_ = c.JSON(201, video)
}

// Thumbnail replaces the video's thumbnail with the raw image body.
func (h *VideoHandler) Thumbnail(c *drift.Context) {
	id, ok := paramID(c, "id", "video")
	if !ok {
		return
	}

	video, err := h.videos.SetThumbnail(c.Request.Context(), id, services.Upload{
		Body:        c.Request.Body,
		Size:        c.Request.ContentLength,
		ContentType: c.GetHeader("Content-Type"),
		Filename:    c.QueryParam("filename"),
	})
	if err != nil {
		writeError(c, err, "video", "upload thumbnail")
		return
	}
	_ = c.JSON(200, video)
}

func (h *VideoHandler) Delete(c *drift.Context) {
	id, ok := paramID(c, "id", "video")
	if !ok {
		return
	}

	if err := h.videos.Delete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		writeError(c, err, "video", "delete video")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "video deleted"})
}
