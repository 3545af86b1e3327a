package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	service   *services.AuthService
	guard     *middleware.LoginGuard
	validator *validation.Validator
}

// NewAuthHandler creates a new auth handler. guard may be nil when Redis is unavailable.
func NewAuthHandler(service *services.AuthService, guard *middleware.LoginGuard) *AuthHandler {
	return &AuthHandler{
		service:   service,
		guard:     guard,
		validator: validation.NewValidator(),
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	req.Username = validation.SanitizeString(req.Username)
	req.FirstName = validation.SanitizeString(req.FirstName)
	req.LastName = validation.SanitizeString(req.LastName)

	result, err := h.service.Register(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(response.Response{
		Success: true,
		Message: "Registration successful. Please check your email to verify your account.",
		Data:    result,
	})
}
