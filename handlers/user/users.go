package user

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// UserHandler serves the caller's own profile and the admin user directory
type UserHandler struct {
	service   *services.UserService
	validator *validation.Validator
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service, validator: validation.NewValidator()}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE DELETED"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

// GetProfile handles GET /api/v1/users/profile
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	u, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, u)
}

// UpdateProfile handles PUT /api/v1/users/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	u, err := h.service.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Profile updated successfully", u)
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := h.service.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Password changed successfully. Please log in again.", nil)
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	page, limit := response.NormalizePage(handlers.ParsePage(c))
	filter := services.UserFilter{
		Page:   page,
		Limit:  limit,
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	users, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// GetUserStats handles GET /api/v1/users/stats
func (h *UserHandler) GetUserStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	u, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, u)
}

// UpdateStatus handles PUT /api/v1/users/:id/status
func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Status = strings.ToUpper(req.Status)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}
	if selfID, _ := middleware.GetUserID(c); selfID == id && req.Status != string(model.UserStatusActive) {
		return response.BadRequest(c, "You cannot deactivate your own account")
	}

	u, err := h.service.UpdateStatus(c.UserContext(), id, model.UserStatus(req.Status))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User status updated", u)
}

// UpdateRole handles PUT /api/v1/users/:id/role
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Role = strings.ToUpper(req.Role)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}
	if selfID, _ := middleware.GetUserID(c); selfID == id {
		return response.BadRequest(c, "You cannot change your own role")
	}

	u, err := h.service.UpdateRole(c.UserContext(), id, model.UserRole(req.Role))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User role updated", u)
}

// DeleteUser handles DELETE /api/v1/users/:id. Rows are kept for invoice history.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}
	if selfID, _ := middleware.GetUserID(c); selfID == id {
		return response.BadRequest(c, "You cannot delete your own account")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User deleted successfully", nil)
}
