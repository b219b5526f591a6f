package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultClasses are created by SeedClasses when missing.
var DefaultClasses = []string{
	"11th JEE",
	"12th JEE",
	"11th NEET",
	"12th NEET",
	"Class 9th",
	"Class 10th",
}

// CatalogService manages the class → subject → chapter tree.
type CatalogService struct {
	db *database.DB
}

func NewCatalogService(db *database.DB) *CatalogService {
	return &CatalogService{db: db}
}

func translateWriteErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrConflict
	case database.IsForeignKeyViolation(err):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to %s: %w", what, err)
	}
}

func scanClass(row pgx.Row) (*models.Class, error) {
	var c models.Class
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) ListClasses(ctx context.Context) ([]models.Class, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM classes
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := []models.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

func (s *CatalogService) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	c, err := scanClass(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM classes WHERE id = $1
	`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CatalogService) CreateClass(ctx context.Context, name string, description *string) (*models.Class, error) {
	c, err := scanClass(s.db.Pool.QueryRow(ctx, `
		INSERT INTO classes (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at
	`, name, description))
	if err != nil {
		return nil, translateWriteErr(err, "create class")
	}
	return c, nil
}

func (s *CatalogService) UpdateClass(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Class, error) {
	c, err := scanClass(s.db.Pool.QueryRow(ctx, `
		UPDATE classes SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, name, description, created_at, updated_at
	`, name, description, id))
	if err != nil {
		return nil, translateWriteErr(err, "update class")
	}
	return c, nil
}

func (s *CatalogService) DeleteClass(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedClasses inserts DefaultClasses that do not exist yet and returns how
// many were added.
func (s *CatalogService) SeedClasses(ctx context.Context) (int, error) {
	added := 0
	for _, name := range DefaultClasses {
		tag, err := s.db.Pool.Exec(ctx, `
			INSERT INTO classes (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name)
		if err != nil {
			return added, fmt.Errorf("seed class %q: %w", name, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *CatalogService) ListSubjects(ctx context.Context, classID uuid.UUID) ([]models.Subject, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, class_id, name, description, created_at
		FROM subjects
		WHERE class_id = $1
		ORDER BY name
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := []models.Subject{}
	for rows.Next() {
		var sub models.Subject
		if err := rows.Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Description, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

func (s *CatalogService) CreateSubject(ctx context.Context, classID uuid.UUID, name string, description *string) (*models.Subject, error) {
	var sub models.Subject
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO subjects (class_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, class_id, name, description, created_at
	`, classID, name, description).Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Description, &sub.CreatedAt)
	if err != nil {
		return nil, translateWriteErr(err, "create subject")
	}
	return &sub, nil
}

func (s *CatalogService) UpdateSubject(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Subject, error) {
	var sub models.Subject
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE subjects SET name = $1, description = $2
		WHERE id = $3
		RETURNING id, class_id, name, description, created_at
	`, name, description, id).Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Description, &sub.CreatedAt)
	if err != nil {
		return nil, translateWriteErr(err, "update subject")
	}
	return &sub, nil
}

// DeleteSubject removes a subject with its chapters and their documents.
// Videos filed under it keep their row with the subject cleared.
func (s *CatalogService) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) ListChapters(ctx context.Context, subjectID uuid.UUID) ([]models.Chapter, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, subject_id, name, position, created_at
		FROM chapters
		WHERE subject_id = $1
		ORDER BY position, name
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chapters := []models.Chapter{}
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.SubjectID, &ch.Name, &ch.Position, &ch.CreatedAt); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (s *CatalogService) CreateChapter(ctx context.Context, subjectID uuid.UUID, name string, position int) (*models.Chapter, error) {
	var ch models.Chapter
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO chapters (subject_id, name, position)
		VALUES ($1, $2, $3)
		RETURNING id, subject_id, name, position, created_at
	`, subjectID, name, position).Scan(&ch.ID, &ch.SubjectID, &ch.Name, &ch.Position, &ch.CreatedAt)
	if err != nil {
		return nil, translateWriteErr(err, "create chapter")
	}
	return &ch, nil
}

// ChapterClass resolves the class a chapter belongs to.
func (s *CatalogService) ChapterClass(ctx context.Context, chapterID uuid.UUID) (uuid.UUID, error) {
	var classID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		SELECT s.class_id
		FROM chapters c
		JOIN subjects s ON s.id = c.subject_id
		WHERE c.id = $1
	`, chapterID).Scan(&classID)
	if database.IsNoRows(err) {
		return uuid.Nil, ErrNotFound
	}
	return classID, err
}
