package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ForgotPassword handles POST /api/v1/auth/forgot-password.
// The answer is the same whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := h.service.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "If the email is registered, a password reset link has been sent", nil)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := h.service.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Password has been reset successfully", nil)
}

// VerifyEmail handles GET /api/v1/auth/verify-email/:token
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	user, err := h.service.VerifyEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Email verified successfully", user)
}
