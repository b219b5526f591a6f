package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/oauth"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/google/uuid"
)

// IdentityResolverInterface is the sign-in half of services.IdentityResolver.
type IdentityResolverInterface interface {
	AuthorizeCredential(ctx context.Context, email, password string) (*services.Identity, error)
	ResolveAssertion(ctx context.Context, a *oauth.Assertion) (*services.Identity, error)
}

type UserServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string, phone *string) (*models.User, error)
	CreateTeacher(ctx context.Context, name, email, password string, phone *string) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
}

type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

type JWTServiceInterface interface {
	GenerateTokenPair(identity *services.Identity) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

type CatalogServiceInterface interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error)
	CreateClass(ctx context.Context, name string, description *string) (*models.Class, error)
	UpdateClass(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Class, error)
	DeleteClass(ctx context.Context, id uuid.UUID) error
	ListSubjects(ctx context.Context, classID uuid.UUID) ([]models.Subject, error)
	CreateSubject(ctx context.Context, classID uuid.UUID, name string, description *string) (*models.Subject, error)
	UpdateSubject(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id uuid.UUID) error
	ListChapters(ctx context.Context, subjectID uuid.UUID) ([]models.Chapter, error)
	CreateChapter(ctx context.Context, subjectID uuid.UUID, name string, position int) (*models.Chapter, error)
}

type VideoServiceInterface interface {
	List(ctx context.Context, f services.VideoFilter) ([]models.Video, error)
	Recent(ctx context.Context, limit int) ([]models.Video, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
	Upload(ctx context.Context, meta services.NewVideo, up services.Upload) (*models.Video, error)
	SetThumbnail(ctx context.Context, id uuid.UUID, up services.Upload) (*models.Video, error)
	Delete(ctx context.Context, id, actor uuid.UUID) error
}

type DocumentServiceInterface interface {
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.Document, error)
	Upload(ctx context.Context, chapterID uuid.UUID, title string, uploadedBy uuid.UUID, up services.Upload) (*models.Document, error)
	Delete(ctx context.Context, id, actor uuid.UUID) error
}

type StatsServiceInterface interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type EmailServiceInterface interface {
	IsConfigured() bool
	SendTeacherWelcome(to, name, loginURL string) error
}

type HubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
	SubscribeToClass(clientID string, classID uuid.UUID)
	UnsubscribeFromClass(clientID string, classID uuid.UUID)
}
