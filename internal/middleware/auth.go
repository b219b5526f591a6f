package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	SessionKey = "session"
	UserIDKey  = "user_id"
)

// SessionMaterializer turns validated claims into a session backed by the
// user store. IdentityResolver implements it.
type SessionMaterializer interface {
	MaterializeSession(ctx context.Context, claims *services.Claims) (*services.Session, error)
}

// Auth validates the bearer token and materializes the session. The role in
// the token is never trusted; the stored role is what later checks see.
func Auth(jwtService *services.JWTService, sessions SessionMaterializer) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		session, err := sessions.MaterializeSession(c.Request.Context(), claims)
		switch {
		case errors.Is(err, services.ErrSessionRevoked), errors.Is(err, services.ErrUnauthorized):
			c.Unauthorized("session is no longer valid")
			return
		case err != nil:
			c.InternalServerError("failed to load session")
			return
		}

		c.Set(SessionKey, session)
		c.Set(UserIDKey, session.User.ID)

		c.Next()
	}
}

// RequireRoles rejects the request before the handler runs unless the session
// holds one of roles. No session is 401, a wrong role is 403.
func RequireRoles(roles ...models.Role) drift.HandlerFunc {
	return func(c *drift.Context) {
		switch err := services.Guard(GetSession(c), roles...); {
		case errors.Is(err, services.ErrUnauthorized):
			c.Unauthorized("authentication required")
			return
		case errors.Is(err, services.ErrForbidden):
			c.Forbidden("insufficient role")
			return
		}
		c.Next()
	}
}

func GetSession(c *drift.Context) *services.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*services.Session); ok {
			return s
		}
	}
	return nil
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}
