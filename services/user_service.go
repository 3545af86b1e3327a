package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"gorm.io/gorm"
)

type UpdateProfileInput struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
}

type UserFilter struct {
	Page   int
	Limit  int
	Role   string
	Status string
	Search string
}

type UserStats struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Inactive     int64 `json:"inactive"`
	Deleted      int64 `json:"deleted"`
	Admins       int64 `json:"admins"`
	Users        int64 `json:"users"`
	NewThisMonth int64 `json:"new_this_month"`
}

type UserService struct {
	db  *gorm.DB
	now Clock
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: utcNow}
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, in UpdateProfileInput) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("User not found")
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.FirstName != nil {
			updates["first_name"] = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			updates["last_name"] = strings.TrimSpace(*in.LastName)
		}
		if in.PhoneNumber != nil {
			updates["phone_number"] = strings.TrimSpace(*in.PhoneNumber)
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword bumps the token version so every session has to log in again
func (s *UserService) ChangePassword(ctx context.Context, id uint, current, next string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("User not found")
			}
			return err
		}

		if err := auth.VerifyPassword(user.PasswordHash, current); err != nil {
			return apperror.BadRequest("Current password is incorrect")
		}

		hash, err := auth.HashPassword(next)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				return apperror.BadRequest("Password must be at least %d characters", auth.MinPasswordLength)
			}
			return err
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"password_hash": hash,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error
	})
}

func (s *UserService) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	query := s.db.WithContext(ctx).Model(&model.User{})

	if f.Role != "" {
		query = query.Where("role = ?", strings.ToUpper(f.Role))
	}
	if f.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(f.Status))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("created_at DESC").Offset(offset(f.Page, f.Limit)).Limit(f.Limit).Find(&users).Error
	return users, total, err
}

func (s *UserService) UpdateStatus(ctx context.Context, id uint, status model.UserStatus) (*model.User, error) {
	switch status {
	case model.UserStatusActive, model.UserStatusInactive, model.UserStatusDeleted:
	default:
		return nil, apperror.BadRequest("Invalid status: %s", status)
	}

	return s.update(ctx, id, func(u *model.User) map[string]interface{} {
		updates := map[string]interface{}{"status": status}
		if status != model.UserStatusActive {
			updates["token_version"] = gorm.Expr("token_version + 1")
		}
		return updates
	})
}

func (s *UserService) UpdateRole(ctx context.Context, id uint, role model.UserRole) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperror.BadRequest("Invalid role: %s", role)
	}

	return s.update(ctx, id, func(u *model.User) map[string]interface{} {
		return map[string]interface{}{
			"role":          role,
			"token_version": gorm.Expr("token_version + 1"),
		}
	})
}

// Delete keeps the row for invoice history and only flips the status
func (s *UserService) Delete(ctx context.Context, id uint) error {
	_, err := s.UpdateStatus(ctx, id, model.UserStatusDeleted)
	return err
}

func (s *UserService) Stats(ctx context.Context) (*UserStats, error) {
	db := s.db.WithContext(ctx)
	stats := &UserStats{}

	counts := []struct {
		dst   *int64
		query string
		args  []interface{}
	}{
		{&stats.Total, "1 = 1", nil},
		{&stats.Active, "status = ?", []interface{}{model.UserStatusActive}},
		{&stats.Inactive, "status = ?", []interface{}{model.UserStatusInactive}},
		{&stats.Deleted, "status = ?", []interface{}{model.UserStatusDeleted}},
		{&stats.Admins, "role = ?", []interface{}{model.RoleAdmin}},
		{&stats.Users, "role = ?", []interface{}{model.RoleUser}},
		{&stats.NewThisMonth, "created_at >= ?", []interface{}{CurrentMonth(s.now()).From}},
	}

	for _, c := range counts {
		if err := db.Model(&model.User{}).Where(c.query, c.args...).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *UserService) update(ctx context.Context, id uint, build func(*model.User) map[string]interface{}) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("User not found")
			}
			return err
		}
		if err := tx.Model(&user).Updates(build(&user)).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
