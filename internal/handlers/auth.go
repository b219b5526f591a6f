package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/internal/oauth"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const (
	stateTTL    = 10 * time.Minute
	authCodeTTL = 30 * time.Second
)

type AuthHandler struct {
	cfg          *config.Config
	providers    map[string]oauth.Provider
	resolver     IdentityResolverInterface
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
	log          *zap.Logger
	states       sync.Map
	authCodes    sync.Map
}

type stateData struct {
	expiresAt time.Time
}

type authCodeData struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewAuthHandler(
	cfg *config.Config,
	resolver IdentityResolverInterface,
	userService UserServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	log *zap.Logger,
) *AuthHandler {
	h := &AuthHandler{
		cfg:          cfg,
		providers:    make(map[string]oauth.Provider),
		resolver:     resolver,
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
		log:          log,
	}

	if cfg.GitHub.ClientID != "" {
		h.providers["github"] = oauth.NewGitHubProvider(cfg.GitHub)
	}
	if cfg.Google.ClientID != "" {
		h.providers["google"] = oauth.NewGoogleProvider(cfg.Google)
	}

	return h
}

// CleanupLoop drops expired OAuth states and auth codes until ctx is done.
func (h *AuthHandler) CleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.sweep(now)
		}
	}
}

func (h *AuthHandler) sweep(now time.Time) {
	h.states.Range(func(key, value any) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			h.states.Delete(key)
		}
		return true
	})
	h.authCodes.Range(func(key, value any) bool {
		if acd, ok := value.(authCodeData); ok && now.After(acd.expiresAt) {
			h.authCodes.Delete(key)
		}
		return true
	})
}

// Login signs in with email and password against the credential registry.
func (h *AuthHandler) Login(c *drift.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}

	identity, err := h.resolver.AuthorizeCredential(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrMissingCredentials):
		c.BadRequest("email and password are required")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("invalid email or password")
		return
	case err != nil:
		c.InternalServerError("sign-in failed")
		return
	}

	h.issueTokens(c, identity)
}

func (h *AuthHandler) GetConsentURL(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		c.InternalServerError("failed to generate state")
		return
	}

	h.states.Store(state, stateData{expiresAt: time.Now().Add(stateTTL)})

	_ = c.JSON(200, dto.ConsentURLResponse{
		URL: p.ConsentURL(state),
	})
}

// Callback completes the provider round trip and sends the browser back to
// the frontend with a one-time code that POST /auth/exchange trades for
// tokens.
func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		h.redirectWithError(c, "unsupported provider")
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.redirectWithError(c, "missing state parameter")
		return
	}

	sd, ok := h.states.LoadAndDelete(state)
	if !ok {
		h.redirectWithError(c, "invalid or expired state")
		return
	}

	sdTyped, ok := sd.(stateData)
	if !ok || time.Now().After(sdTyped.expiresAt) {
		h.redirectWithError(c, "state expired")
		return
	}

	if e := c.QueryParam("error"); e != "" {
		h.redirectWithError(c, "access denied")
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.redirectWithError(c, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	assertion, err := p.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		h.redirectWithError(c, "failed to exchange code")
		return
	}

	identity, err := h.resolver.ResolveAssertion(ctx, assertion)
	if err != nil {
		h.redirectWithError(c, "sign-in failed")
		return
	}

	authCode, err := oauth.GenerateState()
	if err != nil {
		h.redirectWithError(c, "failed to generate auth code")
		return
	}

	h.authCodes.Store(authCode, authCodeData{
		userID:    identity.ID,
		expiresAt: time.Now().Add(authCodeTTL),
	})

	h.redirect(c, url.Values{"code": {authCode}})
}

func (h *AuthHandler) ExchangeCode(c *drift.Context) {
	var req dto.ExchangeCodeRequest
	if !bind(c, &req) {
		return
	}

	acd, ok := h.authCodes.LoadAndDelete(req.Code)
	if !ok {
		c.Unauthorized("invalid or expired code")
		return
	}

	codeData, ok := acd.(authCodeData)
	if !ok || time.Now().After(codeData.expiresAt) {
		c.Unauthorized("code expired")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), codeData.userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	h.issueTokens(c, &services.Identity{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	tokenHash := services.HashToken(req.RefreshToken)

	storedUserID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedUserID != userID {
		c.Unauthorized("refresh token not found or expired")
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(&services.Identity{
		ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role,
	})
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	err = h.tokenService.Rotate(ctx, user.ID, tokenHash, services.HashToken(tokenPair.RefreshToken), expiresAt)
	if errors.Is(err, services.ErrNotFound) {
		c.Unauthorized("refresh token already used")
		return
	}
	if err != nil {
		c.InternalServerError("failed to rotate refresh token")
		return
	}

	resp := dto.NewUserResponse(user)
	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         &resp,
	})
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		tokenHash := services.HashToken(req.RefreshToken)
		_ = h.tokenService.RevokeRefreshToken(c.Request.Context(), tokenHash)
	}

	_ = c.JSON(200, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(c.Request.Context(), userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "all sessions logged out"})
}

func (h *AuthHandler) issueTokens(c *drift.Context, identity *services.Identity) {
	tokenPair, err := h.jwtService.GenerateTokenPair(identity)
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	tokenHash := services.HashToken(tokenPair.RefreshToken)
	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(c.Request.Context(), identity.ID, tokenHash, expiresAt); err != nil {
		h.log.Error("failed to store refresh token", zap.Stringer("user_id", identity.ID), zap.Error(err))
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User: &dto.UserResponse{
			ID:    identity.ID,
			Email: identity.Email,
			Name:  identity.Name,
			Role:  string(identity.Role),
		},
	})
}

func (h *AuthHandler) redirectWithError(c *drift.Context, errMsg string) {
	h.redirect(c, url.Values{"error": {errMsg}})
}

func (h *AuthHandler) redirect(c *drift.Context, params url.Values) {
	http.Redirect(c.Response, c.Request, h.cfg.FrontendCallbackURL+"?"+params.Encode(), http.StatusFound)
}
