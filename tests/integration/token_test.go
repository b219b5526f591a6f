package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Integration_StoreAndValidate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	tokenHash := services.HashToken("my-refresh-token")

	err := svc.StoreRefreshToken(ctx, user.ID, tokenHash, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	userID, err := svc.ValidateRefreshToken(ctx, tokenHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestTokenService_Integration_ValidateExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	tokenHash := services.HashToken("expired-token")
	fixtures.CreateRefreshToken(t, user.ID, tokenHash, time.Now().Add(-time.Hour))

	_, err := svc.ValidateRefreshToken(ctx, tokenHash)
	assert.Error(t, err)
}

func TestTokenService_Integration_RotateIsSingleUse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	oldHash := services.HashToken("old")
	expiresAt := time.Now().Add(24 * time.Hour)
	fixtures.CreateRefreshToken(t, user.ID, oldHash, expiresAt)

	require.NoError(t, svc.Rotate(ctx, user.ID, oldHash, services.HashToken("new-1"), expiresAt))

	err := svc.Rotate(ctx, user.ID, oldHash, services.HashToken("new-2"), expiresAt)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.ValidateRefreshToken(ctx, oldHash)
	assert.Error(t, err)
	userID, err := svc.ValidateRefreshToken(ctx, services.HashToken("new-1"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestTokenService_Integration_ConcurrentRotateOneWinner(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	oldHash := services.HashToken("contended")
	expiresAt := time.Now().Add(24 * time.Hour)
	fixtures.CreateRefreshToken(t, user.ID, oldHash, expiresAt)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Rotate(ctx, user.ID, oldHash, services.HashToken("next-"+string(rune('a'+i))), expiresAt)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, services.ErrNotFound)
	}
	assert.Equal(t, 1, won)
}

func TestTokenService_Integration_RevokeAllUserTokens(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	other := fixtures.CreateUser(t, testutil.WithEmail("other@example.com"))
	expiresAt := time.Now().Add(24 * time.Hour)

	for _, raw := range []string{"token-1", "token-2", "token-3"} {
		require.NoError(t, svc.StoreRefreshToken(ctx, user.ID, services.HashToken(raw), expiresAt))
	}
	require.NoError(t, svc.StoreRefreshToken(ctx, other.ID, services.HashToken("kept"), expiresAt))

	require.NoError(t, svc.RevokeAllUserTokens(ctx, user.ID))

	for _, raw := range []string{"token-1", "token-2", "token-3"} {
		_, err := svc.ValidateRefreshToken(ctx, services.HashToken(raw))
		assert.Error(t, err, raw)
	}
	_, err := svc.ValidateRefreshToken(ctx, services.HashToken("kept"))
	assert.NoError(t, err)
}

func TestTokenService_Integration_CleanupExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("expired"), time.Now().Add(-time.Hour))
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("valid"), time.Now().Add(24*time.Hour))

	removed, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	userID, err := svc.ValidateRefreshToken(ctx, services.HashToken("valid"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}
