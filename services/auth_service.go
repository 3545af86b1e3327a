package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"gorm.io/gorm"
)

const passwordResetTTL = time.Hour

type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
}

// AuthResult is returned by every call that issues a token pair
type AuthResult struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
}

type AuthService struct {
	db        *gorm.DB
	jwt       *auth.JWTManager
	blacklist *auth.BlacklistService
	mailer    Mailer
	now       Clock
}

func NewAuthService(db *gorm.DB, jwtManager *auth.JWTManager, mailer Mailer) *AuthService {
	return &AuthService{
		db:        db,
		jwt:       jwtManager,
		blacklist: auth.NewBlacklistService(db),
		mailer:    mailer,
		now:       utcNow,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperror.BadRequest("Password must be at least %d characters", auth.MinPasswordLength)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken := uuid.NewString()
	user := model.User{
		Username:               username,
		Email:                  email,
		PasswordHash:           hash,
		FirstName:              strings.TrimSpace(in.FirstName),
		LastName:               strings.TrimSpace(in.LastName),
		PhoneNumber:            strings.TrimSpace(in.PhoneNumber),
		Role:                   model.RoleUser,
		Status:                 model.UserStatusActive,
		EmailVerificationToken: &verificationToken,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.BadRequest("Username is already taken")
		}

		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.BadRequest("Email is already registered")
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationEmail(user.Email, user.FullName(), verificationToken); err != nil {
		logger.Warn(ctx).Err(err).Uint("user_id", user.ID).Msg("failed to send verification email")
	}

	logger.Info(ctx).Uint("user_id", user.ID).Msg("user registered")
	return s.issueTokens(&user)
}

// Login accepts either the email or the username as identifier
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)

	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).First(&user).Error; err != nil {
			if isNotFound(err) {
				return apperror.Unauthorized("Invalid credentials")
			}
			return err
		}

		if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
			return apperror.Unauthorized("Invalid credentials")
		}

		if !user.IsActive() {
			return apperror.Unauthorized("Account is not active")
		}

		now := s.now()
		user.LastLoginAt = &now
		return tx.Model(&user).Update("last_login_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(&user)
}

// Refresh exchanges a refresh token for a new pair and revokes the old one
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh {
		return nil, apperror.Unauthorized("Invalid refresh token")
	}

	var user model.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blacklist := auth.NewBlacklistService(tx)

		revoked, err := blacklist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return apperror.Unauthorized("Refresh token has been revoked")
		}

		if err := tx.First(&user, claims.UserID).Error; err != nil {
			if isNotFound(err) {
				return apperror.Unauthorized("Invalid refresh token")
			}
			return err
		}
		if user.TokenVersion != claims.TokenVersion || !user.IsActive() {
			return apperror.Unauthorized("Refresh token is no longer valid")
		}

		return blacklist.RevokeToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time, "refresh")
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(&user)
}

// Logout revokes the access token identified by jti
func (s *AuthService) Logout(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	return s.blacklist.RevokeToken(ctx, jti, userID, expiresAt, "logout")
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email_verification_token = ?", token).First(&user).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Invalid verification token")
			}
			return err
		}

		user.EmailVerified = true
		user.EmailVerificationToken = nil
		return tx.Model(&user).Updates(map[string]interface{}{
			"email_verified":           true,
			"email_verification_token": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcomeEmail(user.Email, user.FullName()); err != nil {
		logger.Warn(ctx).Err(err).Uint("user_id", user.ID).Msg("failed to send welcome email")
	}

	return &user, nil
}

// ForgotPassword never reveals whether the email is registered
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	token := uuid.NewString()
	found := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND status = ?", email, model.UserStatusActive).First(&user).Error; err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		found = true

		expiresAt := s.now().Add(passwordResetTTL)
		return tx.Model(&user).Updates(map[string]interface{}{
			"password_reset_token":      token,
			"password_reset_expires_at": expiresAt,
		}).Error
	})
	if err != nil {
		return err
	}
	if !found {
		logger.Debug(ctx).Msg("password reset requested for unknown email")
		return nil
	}

	if err := s.mailer.SendPasswordResetEmail(user.Email, user.FullName(), token); err != nil {
		logger.Warn(ctx).Err(err).Uint("user_id", user.ID).Msg("failed to send password reset email")
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("password_reset_token = ?", token).First(&user).Error; err != nil {
			if isNotFound(err) {
				return apperror.BadRequest("Invalid or expired reset token")
			}
			return err
		}
		if user.ResetTokenExpired(s.now()) {
			return apperror.BadRequest("Invalid or expired reset token")
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				return apperror.BadRequest("Password must be at least %d characters", auth.MinPasswordLength)
			}
			return err
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"password_hash":             hash,
			"password_reset_token":      nil,
			"password_reset_expires_at": nil,
			"token_version":             gorm.Expr("token_version + 1"),
		}).Error
	})
}

func (s *AuthService) issueTokens(user *model.User) (*AuthResult, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, string(user.Role), user.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email, string(user.Role), user.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
	}, nil
}
