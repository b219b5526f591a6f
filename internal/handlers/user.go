package handlers

import (
	"github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type UserHandler struct {
	userService UserServiceInterface
}

func NewUserHandler(userService UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.NotFound("user not found")
		return
	}

	_ = c.JSON(200, dto.NewUserResponse(user))
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), userID, req.Name, req.Phone)
	if err != nil {
		writeError(c, err, "user", "update user")
		return
	}

	_ = c.JSON(200, dto.NewUserResponse(user))
}
