package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var registry = config.DemoRegistry{
	{Email: "teacher@demo.com", Password: "teacher123", Name: "Demo Teacher", Role: "teacher"},
}

func newResolver(tdb *testutil.TestDB) (*services.IdentityResolver, *services.UserService) {
	users := services.NewUserService(tdb.DB)
	return services.NewIdentityResolver(users, registry, nil, zap.NewNop()), users
}

func TestIdentity_Integration_ConcurrentFirstLoginCreatesOneUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	resolver, _ := newResolver(tdb)
	ctx := context.Background()

	const logins = 16
	ids := make([]string, logins)
	errs := make([]error, logins)
	var wg sync.WaitGroup
	for i := range logins {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity, err := resolver.AuthorizeCredential(ctx, "teacher@demo.com", "teacher123")
			errs[i] = err
			if err == nil {
				ids[i] = identity.ID.String()
			}
		}(i)
	}
	wg.Wait()

	for i := range logins {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int
	err := tdb.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, "teacher@demo.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIdentity_Integration_RoleChangeSeenOnNextRequest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	resolver, users := newResolver(tdb)
	jwtService := testutil.TestJWTService()
	ctx := context.Background()

	identity, err := resolver.AuthorizeCredential(ctx, "teacher@demo.com", "teacher123")
	require.NoError(t, err)
	pair, err := jwtService.GenerateTokenPair(identity)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	_, err = users.UpdateRole(ctx, identity.ID, models.RoleStudent)
	require.NoError(t, err)

	session, err := resolver.MaterializeSession(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.User.Role)
	assert.ErrorIs(t, services.Guard(session, models.RoleTeacher, models.RoleAdmin), services.ErrForbidden)
}

func TestIdentity_Integration_DeletedUserSessionRevoked(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	resolver, _ := newResolver(tdb)
	jwtService := testutil.TestJWTService()
	ctx := context.Background()

	user := fixtures.CreateUser(t, testutil.WithEmail("gone@example.com"))
	identity := testutil.Identity(user)
	pair, err := jwtService.GenerateTokenPair(&identity)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	_, err = tdb.DB.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	require.NoError(t, err)

	_, err = resolver.MaterializeSession(ctx, claims)
	assert.ErrorIs(t, err, services.ErrSessionRevoked)
}

func TestCatalog_Integration_DeleteClassCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	catalog := services.NewCatalogService(tdb.DB)
	ctx := context.Background()

	class := fixtures.CreateClass(t, "Class 9")
	subject, err := catalog.CreateSubject(ctx, class.ID, "Physics", nil)
	require.NoError(t, err)
	chapter, err := catalog.CreateChapter(ctx, subject.ID, "Motion", 1)
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteClass(ctx, class.ID))

	_, err = catalog.ChapterClass(ctx, chapter.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	subjects, err := catalog.ListSubjects(ctx, class.ID)
	require.NoError(t, err)
	assert.Empty(t, subjects)
}
