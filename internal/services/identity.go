package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/metrics"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/oauth"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/dimitrije/lectern-api/internal/services")

// UserStore is the persistence the resolver needs. UserService implements it.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, name string, role models.Role) (*models.User, error)
}

// Identity is a signed-in user as persisted, never as claimed.
type Identity struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// Session is the request-scoped view of an access token after it has been
// re-synchronized with the user store.
type Session struct {
	User      Identity
	ExpiresAt time.Time
}

func identityOf(u *models.User) *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type IdentityResolver struct {
	users    UserStore
	registry config.DemoRegistry
	admins   []string
	log      *zap.Logger
}

// NewIdentityResolver copies registry and admins; later changes to the
// caller's slices are not observed.
func NewIdentityResolver(users UserStore, registry config.DemoRegistry, admins []string, log *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		users:    users,
		registry: slices.Clone(registry),
		admins:   slices.Clone(admins),
		log:      log,
	}
}

// AuthorizeCredential checks email and password against the demo registry and
// returns the persisted identity, creating the user on first sign-in.
func (r *IdentityResolver) AuthorizeCredential(ctx context.Context, email, password string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "IdentityResolver.AuthorizeCredential")
	defer span.End()

	if email == "" || password == "" {
		metrics.ObserveSignIn("credential", "missing")
		return nil, ErrMissingCredentials
	}

	entry, ok := r.lookup(email, password)
	if !ok {
		metrics.ObserveSignIn("credential", "invalid")
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	role, ok := models.ParseRole(entry.Role)
	if !ok {
		metrics.ObserveSignIn("credential", "invalid")
		span.SetStatus(codes.Error, "registry role invalid")
		r.log.Error("registry entry has unknown role", zap.String("email", entry.Email), zap.String("role", entry.Role))
		return nil, ErrInvalidCredentials
	}

	user, err := r.ensureUser(ctx, entry.Email, entry.Name, role)
	if err != nil {
		metrics.ObserveSignIn("credential", "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		r.log.Error("credential sign-in provisioning failed", zap.String("email", email), zap.Error(err))
		return nil, ErrPersistenceFailure
	}

	span.SetAttributes(attribute.String("user.role", string(user.Role)))
	metrics.ObserveSignIn("credential", "success")
	return identityOf(user), nil
}

func (r *IdentityResolver) lookup(email, password string) (config.DemoUser, bool) {
	for _, u := range r.registry {
		if u.Email == email && u.Password == password {
			return u, true
		}
	}
	return config.DemoUser{}, false
}

// ResolveAssertion provisions the asserted user on first sign-in and returns
// the persisted identity. The first role is admin for allowlisted emails and
// teacher otherwise; an existing user's role is left alone.
func (r *IdentityResolver) ResolveAssertion(ctx context.Context, a *oauth.Assertion) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "IdentityResolver.ResolveAssertion")
	defer span.End()

	if a == nil || a.Email == "" {
		metrics.ObserveSignIn("oauth", "invalid")
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("oauth.provider", a.Provider))

	role := models.RoleTeacher
	if r.isAdminEmail(a.Email) {
		role = models.RoleAdmin
	}

	user, err := r.ensureUser(ctx, a.Email, a.Name, role)
	if err != nil {
		metrics.ObserveSignIn("oauth", "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		r.log.Error("oauth sign-in provisioning failed",
			zap.String("email", a.Email),
			zap.String("provider", a.Provider),
			zap.Error(err),
		)
		return nil, ErrPersistenceFailure
	}

	metrics.ObserveSignIn("oauth", "success")
	return identityOf(user), nil
}

// AuthorizeIdentityAssertion reports whether the sign-in may proceed.
func (r *IdentityResolver) AuthorizeIdentityAssertion(ctx context.Context, a *oauth.Assertion) bool {
	_, err := r.ResolveAssertion(ctx, a)
	return err == nil
}

func (r *IdentityResolver) isAdminEmail(email string) bool {
	return slices.Contains(r.admins, email)
}

// ensureUser finds the user by email or creates it. The store's unique
// constraint arbitrates concurrent first sign-ins: the loser re-reads.
func (r *IdentityResolver) ensureUser(ctx context.Context, email, name string, role models.Role) (*models.User, error) {
	user, err := r.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user, err = r.users.Create(ctx, email, name, role)
	if err == nil {
		r.log.Info("user provisioned", zap.String("email", email), zap.String("role", string(role)))
		return user, nil
	}
	if !errors.Is(err, ErrUserExists) {
		return nil, err
	}

	return r.users.GetByEmail(ctx, email)
}

// MaterializeSession rebuilds the session from claims, replacing the token's
// id, name and role with what the store holds now. A user deleted since the
// token was issued yields ErrSessionRevoked.
func (r *IdentityResolver) MaterializeSession(ctx context.Context, claims *Claims) (*Session, error) {
	ctx, span := tracer.Start(ctx, "IdentityResolver.MaterializeSession")
	defer span.End()

	if claims == nil || claims.Email == "" {
		return nil, ErrUnauthorized
	}

	user, err := r.users.GetByEmail(ctx, claims.Email)
	if errors.Is(err, ErrUserNotFound) {
		span.SetStatus(codes.Error, "user gone")
		r.log.Warn("session rejected, user no longer exists", zap.String("email", claims.Email))
		return nil, ErrSessionRevoked
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		r.log.Error("session lookup failed", zap.String("email", claims.Email), zap.Error(err))
		return nil, ErrPersistenceFailure
	}

	if string(user.Role) != claims.Role {
		r.log.Debug("session role refreshed",
			zap.String("email", user.Email),
			zap.String("token_role", claims.Role),
			zap.String("role", string(user.Role)),
		)
	}

	s := &Session{User: *identityOf(user)}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Authorize reports whether session holds one of the allowed roles.
func (r *IdentityResolver) Authorize(session *Session, allowed ...models.Role) bool {
	return Authorize(session, allowed...)
}

func Authorize(session *Session, allowed ...models.Role) bool {
	if session == nil {
		return false
	}
	role := models.Role(strings.ToLower(string(session.User.Role)))
	return slices.Contains(allowed, role)
}

// Guard is Authorize with the failure kind: ErrUnauthorized without a
// session, ErrForbidden when the role is not allowed.
func Guard(session *Session, allowed ...models.Role) error {
	if session == nil {
		return ErrUnauthorized
	}
	if !Authorize(session, allowed...) {
		return ErrForbidden
	}
	return nil
}
