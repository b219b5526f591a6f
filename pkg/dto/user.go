package dto

import (
	"time"

	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/google/uuid"
)

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Phone     *string    `json:"phone,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func NewUserResponse(u *models.User) UserResponse {
	r := UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), Phone: u.Phone}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		r.CreatedAt = &created
	}
	return r
}

type UpdateUserRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

type CreateTeacherRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin teacher student"`
}
