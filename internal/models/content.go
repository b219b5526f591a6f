package models

import (
	"time"

	"github.com/google/uuid"
)

type Class struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Subject struct {
	ID          uuid.UUID `json:"id"`
	ClassID     uuid.UUID `json:"class_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Chapter struct {
	ID        uuid.UUID `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	URL             string     `json:"url"`
	ObjectKey       string     `json:"-"`
	ThumbnailURL    *string    `json:"thumbnail_url,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	ExamType        string     `json:"exam_type"`
	ClassID         *uuid.UUID `json:"class_id,omitempty"`
	SubjectID       *uuid.UUID `json:"subject_id,omitempty"`
	ChapterID       *uuid.UUID `json:"chapter_id,omitempty"`
	UploadedBy      uuid.UUID  `json:"uploaded_by"`
	UploaderName    string     `json:"uploader_name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ObjectKey   string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ChapterID   uuid.UUID `json:"chapter_id"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardStats backs the admin dashboard counters.
type DashboardStats struct {
	TotalStudents int64 `json:"total_students"`
	TotalTeachers int64 `json:"total_teachers"`
	TotalVideos   int64 `json:"total_videos"`
	TotalSubjects int64 `json:"total_subjects"`
}
