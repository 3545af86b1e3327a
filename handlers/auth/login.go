package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// LoginRequest accepts either an email or a username
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	ctx := c.UserContext()
	result, err := h.service.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		if h.guard != nil && apperror.Is(err, apperror.KindUnauthorized) {
			h.guard.RecordFailure(ctx, c.IP())
		}
		return response.FromError(c, err)
	}

	if h.guard != nil {
		h.guard.RecordSuccess(ctx, c.IP())
	}
	return response.SuccessWithMessage(c, "Login successful", result)
}
