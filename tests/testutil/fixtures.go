package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
		Role:  models.RoleStudent,
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	var role string
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, role, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, role, phone, created_at, updated_at
	`, user.Email, user.Name, string(user.Role), user.Phone).Scan(
		&user.ID, &user.Email, &user.Name, &role, &user.Phone, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	user.Role = models.Role(role)

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// WithRole sets the user's role
func WithRole(role models.Role) UserOption {
	return func(u *models.User) {
		u.Role = role
	}
}

// Identity converts a stored user into the identity tokens are issued for
func Identity(u *models.User) services.Identity {
	return services.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// CreateClass creates a test class
func (f *Fixtures) CreateClass(t *testing.T, name string) *models.Class {
	t.Helper()

	c := &models.Class{}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO classes (name) VALUES ($1)
		RETURNING id, name, description, created_at, updated_at
	`, name).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create class: %v", err)
	}
	return c
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
