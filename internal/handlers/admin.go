package handlers

import (
	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const recentLimit = 10

// AdminHandler backs the dashboard. Role checks happen in the route group.
type AdminHandler struct {
	cfg          *config.Config
	userService  UserServiceInterface
	videoService VideoServiceInterface
	stats        StatsServiceInterface
	email        EmailServiceInterface
	log          *zap.Logger
}

func NewAdminHandler(
	cfg *config.Config,
	userService UserServiceInterface,
	videoService VideoServiceInterface,
	stats StatsServiceInterface,
	email EmailServiceInterface,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		cfg:          cfg,
		userService:  userService,
		videoService: videoService,
		stats:        stats,
		email:        email,
		log:          log,
	}
}

func (h *AdminHandler) Stats(c *drift.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		h.log.Error("dashboard stats failed", zap.Error(err))
		c.InternalServerError("failed to load stats")
		return
	}
	_ = c.JSON(200, stats)
}

func (h *AdminHandler) RecentUsers(c *drift.Context) {
	users, err := h.userService.Recent(c.Request.Context(), queryInt(c, "limit", recentLimit))
	if err != nil {
		c.InternalServerError("failed to load users")
		return
	}
	_ = c.JSON(200, userResponses(users))
}

func (h *AdminHandler) RecentVideos(c *drift.Context) {
	videos, err := h.videoService.Recent(c.Request.Context(), queryInt(c, "limit", recentLimit))
	if err != nil {
		c.InternalServerError("failed to load videos")
		return
	}
	_ = c.JSON(200, videos)
}

func (h *AdminHandler) ListTeachers(c *drift.Context) {
	teachers, err := h.userService.ListByRole(c.Request.Context(), models.RoleTeacher)
	if err != nil {
		c.InternalServerError("failed to load teachers")
		return
	}
	_ = c.JSON(200, userResponses(teachers))
}

// CreateTeacher adds a teacher account and, when SMTP is set up, mails them
// the sign-in link. A mail failure does not undo the account.
func (h *AdminHandler) CreateTeacher(c *drift.Context) {
	var req dto.CreateTeacherRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.userService.CreateTeacher(c.Request.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		writeError(c, err, "email", "create teacher")
		return
	}

	if h.email != nil && h.email.IsConfigured() {
		if err := h.email.SendTeacherWelcome(user.Email, user.Name, h.cfg.LoginURL); err != nil {
			h.log.Warn("teacher welcome mail failed", zap.String("email", user.Email), zap.Error(err))
		}
	}

	_ = c.JSON(201, dto.NewUserResponse(user))
}

func (h *AdminHandler) UpdateRole(c *drift.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if !bind(c, &req) {
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		c.BadRequest("unknown role")
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), id, role)
	if err != nil {
		writeError(c, err, "user", "update role")
		return
	}

	h.log.Info("user role changed", zap.Stringer("user_id", user.ID), zap.String("role", string(role)))
	_ = c.JSON(200, dto.NewUserResponse(user))
}

func userResponses(users []models.User) []dto.UserResponse {
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = dto.NewUserResponse(&users[i])
	}
	return out
}
