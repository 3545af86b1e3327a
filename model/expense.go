package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is an administrative cost entry that must be approved before it counts
type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	Description string          `gorm:"type:varchar(500);not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category"`
	ExpenseDate time.Time       `gorm:"not null;index" json:"expense_date"`
	ReceiptURL  string          `gorm:"type:varchar(500)" json:"receipt_url,omitempty"`
	IsApproved  bool            `gorm:"default:false;index" json:"is_approved"`
	ApprovedBy  *uint           `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy   uint            `gorm:"index" json:"created_by"`
}
