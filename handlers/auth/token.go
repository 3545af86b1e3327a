package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	result, err := h.service.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// Logout handles POST /api/v1/auth/logout by revoking the presented access token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	if err := h.service.Logout(c.UserContext(), claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
