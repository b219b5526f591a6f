package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, name, role, password, phone, created_at, updated_at`

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var role string
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &role,
		&user.Password, &user.Phone, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetByEmail matches the email exactly; no case folding.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email))
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Create inserts a user without a password. ErrUserExists is returned when
// the email is already taken, including by a concurrent insert.
func (s *UserService) Create(ctx context.Context, email, name string, role models.Role) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, role)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, email, name, string(role)))
	if database.IsUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateTeacher provisions a teacher account on behalf of an admin.
func (s *UserService) CreateTeacher(ctx context.Context, name, email, password string, phone *string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, role, password, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns, email, name, string(models.RoleTeacher), string(hash), phone))
	if database.IsUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, name string, phone *string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET name = $1, phone = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+userColumns, name, phone, id))
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns, string(role), id))
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateRoleByEmail(ctx context.Context, email string, role models.Role) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE email = $2
		RETURNING `+userColumns, string(role), email))
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = $1
		ORDER BY created_at DESC
	`, string(role))
}

// Recent returns the newest users first.
func (s *UserService) Recent(ctx context.Context, limit int) ([]models.User, error) {
	return s.list(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (s *UserService) list(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
