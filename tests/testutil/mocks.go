package testutil

import (
	"context"
	"time"

	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/oauth"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIdentityResolver mocks the sign-in side of IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) AuthorizeCredential(ctx context.Context, email, password string) (*services.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Identity), args.Error(1)
}

func (m *MockIdentityResolver) ResolveAssertion(ctx context.Context, a *oauth.Assertion) (*services.Identity, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Identity), args.Error(1)
}

func (m *MockIdentityResolver) MaterializeSession(ctx context.Context, claims *services.Claims) (*services.Session, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Session), args.Error(1)
}

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string, phone *string) (*models.User, error) {
	args := m.Called(ctx, id, name, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) CreateTeacher(ctx context.Context, name, email, password string, phone *string) (*models.User, error) {
	args := m.Called(ctx, name, email, password, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Recent(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, oldHash, newHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(identity *services.Identity) (*services.TokenPair, error) {
	args := m.Called(identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockCatalogService mocks the CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListClasses(ctx context.Context) ([]models.Class, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Class), args.Error(1)
}

func (m *MockCatalogService) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Class), args.Error(1)
}

func (m *MockCatalogService) CreateClass(ctx context.Context, name string, description *string) (*models.Class, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Class), args.Error(1)
}

func (m *MockCatalogService) UpdateClass(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Class, error) {
	args := m.Called(ctx, id, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Class), args.Error(1)
}

func (m *MockCatalogService) DeleteClass(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogService) ListSubjects(ctx context.Context, classID uuid.UUID) ([]models.Subject, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subject), args.Error(1)
}

func (m *MockCatalogService) CreateSubject(ctx context.Context, classID uuid.UUID, name string, description *string) (*models.Subject, error) {
	args := m.Called(ctx, classID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subject), args.Error(1)
}

func (m *MockCatalogService) UpdateSubject(ctx context.Context, id uuid.UUID, name string, description *string) (*models.Subject, error) {
	args := m.Called(ctx, id, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subject), args.Error(1)
}

func (m *MockCatalogService) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogService) ListChapters(ctx context.Context, subjectID uuid.UUID) ([]models.Chapter, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chapter), args.Error(1)
}

func (m *MockCatalogService) CreateChapter(ctx context.Context, subjectID uuid.UUID, name string, position int) (*models.Chapter, error) {
	args := m.Called(ctx, subjectID, name, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

// MockVideoService mocks the VideoService
type MockVideoService struct {
	mock.Mock
}

func (m *MockVideoService) List(ctx context.Context, f services.VideoFilter) ([]models.Video, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Video), args.Error(1)
}

func (m *MockVideoService) Recent(ctx context.Context, limit int) ([]models.Video, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Video), args.Error(1)
}

func (m *MockVideoService) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func (m *MockVideoService) Upload(ctx context.Context, meta services.NewVideo, up services.Upload) (*models.Video, error) {
	args := m.Called(ctx, meta, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func (m *MockVideoService) SetThumbnail(ctx context.Context, id uuid.UUID, up services.Upload) (*models.Video, error) {
	args := m.Called(ctx, id, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func (m *MockVideoService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

// MockDocumentService mocks the DocumentService
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.Document, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

func (m *MockDocumentService) Upload(ctx context.Context, chapterID uuid.UUID, title string, uploadedBy uuid.UUID, up services.Upload) (*models.Document, error) {
	args := m.Called(ctx, chapterID, title, uploadedBy, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

// MockStatsService mocks the StatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendTeacherWelcome(to, name, loginURL string) error {
	args := m.Called(to, name, loginURL)
	return args.Error(0)
}

// MockHub mocks the SSE hub
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) Unregister(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) SubscribeToClass(clientID string, classID uuid.UUID) {
	m.Called(clientID, classID)
}

func (m *MockHub) UnsubscribeFromClass(clientID string, classID uuid.UUID) {
	m.Called(clientID, classID)
}

// MockOAuthProvider mocks an OAuth provider
type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) ConsentURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuthProvider) Exchange(ctx context.Context, code string) (*oauth.Assertion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.Assertion), args.Error(1)
}

func (m *MockOAuthProvider) Name() string {
	args := m.Called()
	return args.String(0)
}
