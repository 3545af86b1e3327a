package model

import (
	"time"
)

// JWTTokenBlacklist stores revoked token ids until their natural expiry
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"column:jti;type:varchar(64);uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Reason    string    `gorm:"type:varchar(50)" json:"reason"` // logout, token_refresh
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}
