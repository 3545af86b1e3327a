package model

import (
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusDeleted  UserStatus = "DELETED"
)

// User represents a registered account. Users are never hard-deleted;
// deletion flips Status to DELETED.
type User struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	Username               string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email                  string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash           string     `gorm:"not null" json:"-"`
	FirstName              string     `gorm:"type:varchar(100)" json:"first_name"`
	LastName               string     `gorm:"type:varchar(100)" json:"last_name"`
	PhoneNumber            string     `gorm:"type:varchar(20)" json:"phone_number"`
	Role                   UserRole   `gorm:"type:varchar(20);not null;default:'USER';index" json:"role"`
	Status                 UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	EmailVerified          bool       `gorm:"default:false" json:"email_verified"`
	EmailVerificationToken *string    `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	PasswordResetToken     *string    `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	TokenVersion           int        `gorm:"default:0" json:"-"` // bump to invalidate every issued token
	LastLoginAt            *time.Time `json:"last_login_at,omitempty"`

	Enrollments []Enrollment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Invoices    []Invoice    `gorm:"foreignKey:UserID" json:"-"`
}

// FullName joins first and last name, falling back to the username
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ResetTokenExpired reports whether the stored reset token is past its expiry
func (u *User) ResetTokenExpired(now time.Time) bool {
	return u.PasswordResetExpiresAt == nil || now.After(*u.PasswordResetExpiresAt)
}
