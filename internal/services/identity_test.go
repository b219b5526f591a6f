package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/oauth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore mimics the users table: email is unique and a second insert of the
// same email fails like a unique violation would.
type memStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	creates int
	// gate, when set, holds every Create until closed so concurrent
	// provisioning really overlaps.
	gate    chan struct{}
	failGet error
}

func newMemStore() *memStore {
	return &memStore{byEmail: map[string]*models.User{}}
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, email, name string, role models.Role) (*models.User, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrUserExists
	}
	u := &models.User{ID: uuid.New(), Email: email, Name: name, Role: role, CreatedAt: time.Now()}
	s.byEmail[email] = u
	cp := *u
	return &cp, nil
}

func (s *memStore) setRole(email string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[email].Role = role
}

func (s *memStore) delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byEmail, email)
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

var testRegistry = config.DemoRegistry{
	{Email: "admin@demo.com", Password: "admin123", Name: "Demo Admin", Role: "admin"},
	{Email: "teacher@demo.com", Password: "teacher123", Name: "Demo Teacher", Role: "teacher"},
	{Email: "student@demo.com", Password: "student123", Name: "Demo Student", Role: "student"},
}

func newTestResolver(store UserStore, admins ...string) *IdentityResolver {
	return NewIdentityResolver(store, testRegistry, admins, zap.NewNop())
}

func TestAuthorizeCredential_DemoAdmin(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)

	id, err := r.AuthorizeCredential(context.Background(), "admin@demo.com", "admin123")

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, id.Role)
	assert.Equal(t, "Demo Admin", id.Name)
	assert.NotEqual(t, uuid.Nil, id.ID)
	assert.Equal(t, 1, store.count())
}

func TestAuthorizeCredential_WrongPassword(t *testing.T) {
	r := newTestResolver(newMemStore())

	_, err := r.AuthorizeCredential(context.Background(), "admin@demo.com", "wrongpass")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthorizeCredential_UnknownRegistryRoleRejected(t *testing.T) {
	store := newMemStore()
	registry := config.DemoRegistry{{Email: "odd@demo.com", Password: "pw", Name: "Odd", Role: "owner"}}
	r := NewIdentityResolver(store, registry, nil, zap.NewNop())

	_, err := r.AuthorizeCredential(context.Background(), "odd@demo.com", "pw")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, store.count())
}

func TestAuthorizeCredential_Missing(t *testing.T) {
	r := newTestResolver(newMemStore())

	tests := []struct {
		name, email, password string
	}{
		{"empty password", "admin@demo.com", ""},
		{"empty email", "", "admin123"},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.AuthorizeCredential(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}
}

func TestAuthorizeCredential_NotInRegistry(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)

	tests := []struct {
		email, password string
	}{
		{"nobody@demo.com", "admin123"},
		{"Admin@demo.com", "admin123"},
		{"admin@demo.com ", "admin123"},
		{"teacher@demo.com", "admin123"},
		{"student@demo.com", "STUDENT123"},
	}

	for _, tt := range tests {
		t.Run(tt.email+"/"+tt.password, func(t *testing.T) {
			_, err := r.AuthorizeCredential(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, "invalid email or password", err.Error())
		})
	}
	assert.Equal(t, 0, store.count())
}

func TestAuthorizeCredential_ReturnsPersistedRole(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)
	ctx := context.Background()

	first, err := r.AuthorizeCredential(ctx, "teacher@demo.com", "teacher123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, first.Role)

	store.setRole("teacher@demo.com", models.RoleAdmin)

	second, err := r.AuthorizeCredential(ctx, "teacher@demo.com", "teacher123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RoleAdmin, second.Role)
}

func TestAuthorizeCredential_StoreFailureFailsClosed(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("connection refused")
	r := newTestResolver(store)

	id, err := r.AuthorizeCredential(context.Background(), "admin@demo.com", "admin123")

	assert.Nil(t, id)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestAuthorizeCredential_ConcurrentFirstLogin(t *testing.T) {
	store := newMemStore()
	store.gate = make(chan struct{})
	r := newTestResolver(store)

	const n = 16
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.AuthorizeCredential(context.Background(), "student@demo.com", "student123")
			errs[i] = err
			if id != nil {
				ids[i] = id.ID
			}
		}(i)
	}

	// let every goroutine reach Create before any insert succeeds
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, store.count())
}

func TestResolveAssertion_FirstSignInRoles(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  models.Role
	}{
		{"allowlisted admin", "boss@school.edu", models.RoleAdmin},
		{"anyone else", "someone@school.edu", models.RoleTeacher},
		{"allowlist is case sensitive", "Boss@school.edu", models.RoleTeacher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(newMemStore(), "boss@school.edu")

			id, err := r.ResolveAssertion(context.Background(), &oauth.Assertion{Email: tt.email, Name: "X", Provider: "google"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, id.Role)
		})
	}
}

func TestResolveAssertion_ExistingUserKeepsRole(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store, "boss@school.edu")
	ctx := context.Background()

	_, err := store.Create(ctx, "boss@school.edu", "Boss", models.RoleStudent)
	require.NoError(t, err)

	id, err := r.ResolveAssertion(ctx, &oauth.Assertion{Email: "boss@school.edu", Name: "Boss"})

	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, id.Role)
}

func TestAuthorizeIdentityAssertion(t *testing.T) {
	ctx := context.Background()

	ok := newTestResolver(newMemStore()).AuthorizeIdentityAssertion(ctx, &oauth.Assertion{Email: "a@b.c", Name: "A"})
	assert.True(t, ok)

	failing := newMemStore()
	failing.failGet = errors.New("db down")
	ok = newTestResolver(failing).AuthorizeIdentityAssertion(ctx, &oauth.Assertion{Email: "a@b.c", Name: "A"})
	assert.False(t, ok)

	ok = newTestResolver(newMemStore()).AuthorizeIdentityAssertion(ctx, &oauth.Assertion{Name: "No Email"})
	assert.False(t, ok)
}

func claimsFor(id *Identity) *Claims {
	return &Claims{
		UserID: id.ID,
		Email:  id.Email,
		Name:   id.Name,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestMaterializeSession_ReflectsPersistedRole(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)
	ctx := context.Background()

	id, err := r.AuthorizeCredential(ctx, "teacher@demo.com", "teacher123")
	require.NoError(t, err)
	oldToken := claimsFor(id)

	store.setRole("teacher@demo.com", models.RoleAdmin)

	s, err := r.MaterializeSession(ctx, oldToken)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, s.User.Role)
	assert.Equal(t, id.ID, s.User.ID)
	assert.WithinDuration(t, oldToken.ExpiresAt.Time, s.ExpiresAt, time.Second)
}

func TestMaterializeSession_OverridesTamperedClaims(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)
	ctx := context.Background()

	id, err := r.AuthorizeCredential(ctx, "student@demo.com", "student123")
	require.NoError(t, err)
	claims := claimsFor(id)
	claims.Role = "admin"
	claims.UserID = uuid.New()
	claims.Name = "Someone Else"

	s, err := r.MaterializeSession(ctx, claims)

	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, s.User.Role)
	assert.Equal(t, id.ID, s.User.ID)
	assert.Equal(t, "Demo Student", s.User.Name)
}

func TestMaterializeSession_DeletedUserIsRevoked(t *testing.T) {
	store := newMemStore()
	r := newTestResolver(store)
	ctx := context.Background()

	id, err := r.AuthorizeCredential(ctx, "admin@demo.com", "admin123")
	require.NoError(t, err)
	store.delete("admin@demo.com")

	s, err := r.MaterializeSession(ctx, claimsFor(id))

	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestMaterializeSession_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("timeout")
	r := newTestResolver(store)

	_, err := r.MaterializeSession(context.Background(), &Claims{Email: "admin@demo.com", Role: "admin"})

	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestMaterializeSession_NoClaims(t *testing.T) {
	r := newTestResolver(newMemStore())

	_, err := r.MaterializeSession(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = r.MaterializeSession(context.Background(), &Claims{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorize(t *testing.T) {
	admin := &Session{User: Identity{Role: models.RoleAdmin}}
	teacher := &Session{User: Identity{Role: models.RoleTeacher}}
	shouting := &Session{User: Identity{Role: "ADMIN"}}

	assert.True(t, Authorize(admin, models.RoleAdmin))
	assert.False(t, Authorize(teacher, models.RoleAdmin))
	assert.False(t, Authorize(nil, models.RoleAdmin))
	assert.True(t, Authorize(teacher, models.RoleAdmin, models.RoleTeacher))
	assert.True(t, Authorize(shouting, models.RoleAdmin))
	assert.False(t, Authorize(admin))

	r := newTestResolver(newMemStore())
	assert.True(t, r.Authorize(admin, models.RoleAdmin))
	assert.False(t, r.Authorize(teacher, models.RoleAdmin))
}

func TestGuard(t *testing.T) {
	teacher := &Session{User: Identity{Role: models.RoleTeacher}}

	assert.ErrorIs(t, Guard(nil, models.RoleAdmin), ErrUnauthorized)
	assert.ErrorIs(t, Guard(teacher, models.RoleAdmin), ErrForbidden)
	assert.NoError(t, Guard(teacher, models.RoleAdmin, models.RoleTeacher))
}

func TestNewIdentityResolver_CopiesRegistry(t *testing.T) {
	reg := config.DemoRegistry{{Email: "x@y.z", Password: "pw", Name: "X", Role: "student"}}
	r := NewIdentityResolver(newMemStore(), reg, nil, zap.NewNop())

	reg[0].Password = "changed"

	_, err := r.AuthorizeCredential(context.Background(), "x@y.z", "pw")
	assert.NoError(t, err)
}
