package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authenticate resolves the bearer token into an active user. The returned
// message is safe to show to the client.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, "Missing authorization token", nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, "Invalid authorization format", nil
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, "Token has expired", nil
		}
		return nil, nil, "Invalid token", nil
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return nil, nil, "Invalid token type", nil
	}

	revoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, "", err
	}
	if revoked {
		return nil, nil, "Token has been revoked", nil
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, "User not found", nil
		}
		return nil, nil, "", err
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, "Token has been invalidated", nil
	}
	if !user.IsActive() {
		return nil, nil, "Account is not active", nil
	}

	return claims, &user, "", nil
}

func setIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", user.ID)
	c.Locals("user_email", user.Email)
	c.Locals("user_role", string(user.Role))
	c.Locals("claims", claims)
	c.Locals("user", user)
	c.Locals("token_jti", claims.ID)
}

// Required rejects requests without a valid access token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, reason, err := m.authenticate(c)
		if err != nil {
			logger.FromFiber(c).Error().Err(err).Msg("authentication lookup failed")
			return response.InternalServerError(c, "Failed to verify token")
		}
		if reason != "" {
			return response.Unauthorized(c, reason)
		}

		setIdentity(c, claims, user)
		return c.Next()
	}
}

// Optional attaches the identity when a valid token is present and never rejects
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}

		claims, user, reason, err := m.authenticate(c)
		if err == nil && reason == "" {
			setIdentity(c, claims, user)
		}
		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

func GetUserRole(c *fiber.Ctx) (string, bool) {
	r, ok := c.Locals("user_role").(string)
	return r, ok
}

// IsAdmin reports whether the authenticated caller holds the ADMIN role
func IsAdmin(c *fiber.Ctx) bool {
	role, _ := GetUserRole(c)
	return role == string(model.RoleAdmin)
}

func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok
}

func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}
