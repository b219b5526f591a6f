package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/metrics"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/dimitrije/lectern-api/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const videoColumns = `v.id, v.title, v.description, v.url, v.object_key, v.thumbnail_url,
	v.duration_seconds, v.exam_type, v.class_id, v.subject_id, v.chapter_id,
	v.uploaded_by, COALESCE(u.name, ''), v.created_at`

type VideoService struct {
	db        *database.DB
	storage   storage.Provider
	publisher Publisher
	log       *zap.Logger
}

func NewVideoService(db *database.DB, store storage.Provider, publisher Publisher, log *zap.Logger) *VideoService {
	return &VideoService{db: db, storage: store, publisher: publisher, log: log}
}

type VideoFilter struct {
	ClassID   *uuid.UUID
	SubjectID *uuid.UUID
	ChapterID *uuid.UUID
	ExamType  string
	Limit     int
}

type NewVideo struct {
	Title           string
	Description     *string
	ExamType        string
	ThumbnailURL    *string
	DurationSeconds *int
	ClassID         *uuid.UUID
	SubjectID       *uuid.UUID
	ChapterID       *uuid.UUID
	UploadedBy      uuid.UUID
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	err := row.Scan(
		&v.ID, &v.Title, &v.Description, &v.URL, &v.ObjectKey, &v.ThumbnailURL,
		&v.DurationSeconds, &v.ExamType, &v.ClassID, &v.SubjectID, &v.ChapterID,
		&v.UploadedBy, &v.UploaderName, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VideoService) List(ctx context.Context, f VideoFilter) ([]models.Video, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ClassID != nil {
		add("v.class_id = $%d", *f.ClassID)
	}
	if f.SubjectID != nil {
		add("v.subject_id = $%d", *f.SubjectID)
	}
	if f.ChapterID != nil {
		add("v.chapter_id = $%d", *f.ChapterID)
	}
	if f.ExamType != "" {
		add("v.exam_type = $%d", f.ExamType)
	}

	query := `SELECT ` + videoColumns + ` FROM videos v LEFT JOIN users u ON u.id = v.uploaded_by`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY v.created_at DESC`

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	return s.list(ctx, query, args...)
}

// Recent backs the dashboard's latest uploads panel.
func (s *VideoService) Recent(ctx context.Context, limit int) ([]models.Video, error) {
	return s.list(ctx, `
		SELECT `+videoColumns+`
		FROM videos v LEFT JOIN users u ON u.id = v.uploaded_by
		ORDER BY v.created_at DESC
		LIMIT $1
	`, limit)
}

func (s *VideoService) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

func (s *VideoService) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, err := scanVideo(s.db.Pool.QueryRow(ctx, `
		SELECT `+videoColumns+`
		FROM videos v LEFT JOIN users u ON u.id = v.uploaded_by
		WHERE v.id = $1
	`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return v, err
}

// Upload stores the video bytes, records the row and announces it to the
// class. The stored object is removed again if the row cannot be written.
func (s *VideoService) Upload(ctx context.Context, meta NewVideo, up Upload) (*models.Video, error) {
	if !strings.HasPrefix(up.mediaType(), "video/") {
		return nil, ErrUnsupportedMedia
	}
	if err := up.check(MaxVideoBytes); err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, meta); err != nil {
		return nil, err
	}

	key := objectKey(videoPrefix, up)
	url, err := s.storage.Upload(ctx, key, up.body(), up.Size, up.mediaType())
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	metrics.ObserveUpload("video", up.Size)

	var id uuid.UUID
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO videos (title, description, url, object_key, thumbnail_url, duration_seconds,
			exam_type, class_id, subject_id, chapter_id, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, meta.Title, meta.Description, url, key, meta.ThumbnailURL, meta.DurationSeconds,
		meta.ExamType, meta.ClassID, meta.SubjectID, meta.ChapterID, meta.UploadedBy).Scan(&id)
	if err != nil {
		s.discard(ctx, key)
		// A class, subject or chapter removed since checkPlacement ran.
		if database.IsForeignKeyViolation(err) {
			return nil, ErrInvalidPlacement
		}
		return nil, translateWriteErr(err, "create video")
	}

	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v.ClassID != nil {
		s.publisher.Publish(sse.EventVideoPublished, sse.ContentEvent{
			ID:        v.ID,
			ClassID:   *v.ClassID,
			ChapterID: v.ChapterID,
			Title:     v.Title,
			URL:       v.URL,
			ActorID:   meta.UploadedBy,
		})
	}
	return v, nil
}

// checkPlacement reports which of the selected class, subject and chapter
// does not exist. Nothing is queried for an unplaced video.
func (s *VideoService) checkPlacement(ctx context.Context, meta NewVideo) error {
	if meta.ClassID == nil && meta.SubjectID == nil && meta.ChapterID == nil {
		return nil
	}

	var classOK, subjectOK, chapterOK bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT
			$1::uuid IS NULL OR EXISTS (SELECT 1 FROM classes WHERE id = $1),
			$2::uuid IS NULL OR EXISTS (SELECT 1 FROM subjects WHERE id = $2),
			$3::uuid IS NULL OR EXISTS (SELECT 1 FROM chapters WHERE id = $3)
	`, meta.ClassID, meta.SubjectID, meta.ChapterID).Scan(&classOK, &subjectOK, &chapterOK)
	if err != nil {
		return fmt.Errorf("failed to check video placement: %w", err)
	}

	switch {
	case !classOK:
		return ErrInvalidClass
	case !subjectOK:
		return ErrInvalidSubject
	case !chapterOK:
		return ErrInvalidChapter
	}
	return nil
}

// SetThumbnail stores an image for the video and points thumbnail_url at
// it. A previously uploaded thumbnail is removed from storage.
func (s *VideoService) SetThumbnail(ctx context.Context, id uuid.UUID, up Upload) (*models.Video, error) {
	if !strings.HasPrefix(up.mediaType(), "image/") {
		return nil, ErrUnsupportedMedia
	}
	if err := up.check(MaxThumbnailBytes); err != nil {
		return nil, err
	}

	key := objectKey(thumbnailPrefix, up)
	url, err := s.storage.Upload(ctx, key, up.body(), up.Size, up.mediaType())
	if err != nil {
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}
	metrics.ObserveUpload("thumbnail", up.Size)

	var oldKey *string
	err = s.db.Pool.QueryRow(ctx, `
		WITH prev AS (SELECT thumbnail_key FROM videos WHERE id = $3 FOR UPDATE)
		UPDATE videos SET thumbnail_url = $1, thumbnail_key = $2
		FROM prev
		WHERE videos.id = $3
		RETURNING prev.thumbnail_key
	`, url, key, id).Scan(&oldKey)
	if err != nil {
		s.discard(ctx, key)
		return nil, translateWriteErr(err, "set thumbnail")
	}
	if oldKey != nil && *oldKey != key {
		s.discard(ctx, *oldKey)
	}

	return s.Get(ctx, id)
}

func (s *VideoService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	var key string
	var thumbKey *string
	var classID *uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		DELETE FROM videos WHERE id = $1
		RETURNING object_key, thumbnail_key, class_id
	`, id).Scan(&key, &thumbKey, &classID)
	if database.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.discard(ctx, key)
	if thumbKey != nil {
		s.discard(ctx, *thumbKey)
	}

	if classID != nil {
		s.publisher.Publish(sse.EventVideoDeleted, sse.ContentEvent{ID: id, ClassID: *classID, ActorID: actor})
	}
	return nil
}

// discard removes an object even if the request was cancelled. A failure
// only leaves an orphan behind, so it is logged and swallowed.
func (s *VideoService) discard(ctx context.Context, key string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("failed to remove stored object", zap.String("key", key), zap.Error(err))
	}
}
