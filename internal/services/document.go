package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/metrics"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/dimitrije/lectern-api/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
}

// ChapterLocator finds the class owning a chapter. CatalogService implements it.
type ChapterLocator interface {
	ChapterClass(ctx context.Context, chapterID uuid.UUID) (uuid.UUID, error)
}

type DocumentService struct {
	db        *database.DB
	storage   storage.Provider
	chapters  ChapterLocator
	publisher Publisher
	log       *zap.Logger
}

func NewDocumentService(db *database.DB, store storage.Provider, chapters ChapterLocator, publisher Publisher, log *zap.Logger) *DocumentService {
	return &DocumentService{db: db, storage: store, chapters: chapters, publisher: publisher, log: log}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.Title, &d.URL, &d.ObjectKey, &d.ContentType, &d.SizeBytes,
		&d.ChapterID, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DocumentService) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.Document, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, title, url, object_key, content_type, size_bytes, chapter_id, uploaded_by, created_at
		FROM documents
		WHERE chapter_id = $1
		ORDER BY created_at DESC
	`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *DocumentService) Upload(ctx context.Context, chapterID uuid.UUID, title string, uploadedBy uuid.UUID, up Upload) (*models.Document, error) {
	mt := up.mediaType()
	if !documentTypes[mt] {
		return nil, ErrUnsupportedMedia
	}
	if err := up.check(MaxDocumentBytes); err != nil {
		return nil, err
	}

	classID, err := s.chapters.ChapterClass(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	key := objectKey(documentPrefix, up)
	url, err := s.storage.Upload(ctx, key, up.body(), up.Size, mt)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	metrics.ObserveUpload("document", up.Size)

	doc, err := scanDocument(s.db.Pool.QueryRow(ctx, `
		INSERT INTO documents (title, url, object_key, content_type, size_bytes, chapter_id, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, title, url, object_key, content_type, size_bytes, chapter_id, uploaded_by, created_at
	`, title, url, key, mt, up.Size, chapterID, uploadedBy))
	if err != nil {
		if derr := s.storage.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("failed to remove stored object", zap.String("key", key), zap.Error(derr))
		}
		return nil, translateWriteErr(err, "create document")
	}

	chapter := doc.ChapterID
	s.publisher.Publish(sse.EventDocumentPublished, sse.ContentEvent{
		ID:        doc.ID,
		ClassID:   classID,
		ChapterID: &chapter,
		Title:     doc.Title,
		URL:       doc.URL,
		ActorID:   uploadedBy,
	})
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	var key string
	var chapterID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		DELETE FROM documents WHERE id = $1
		RETURNING object_key, chapter_id
	`, id).Scan(&key, &chapterID)
	if database.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("failed to remove stored object", zap.String("key", key), zap.Error(err))
	}

	if classID, err := s.chapters.ChapterClass(ctx, chapterID); err == nil {
		s.publisher.Publish(sse.EventDocumentDeleted, sse.ContentEvent{ID: id, ClassID: classID, ChapterID: &chapterID, ActorID: actor})
	}
	return nil
}
