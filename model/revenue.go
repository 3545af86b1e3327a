package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Revenue is the monthly financial rollup, unique per (month, year)
type Revenue struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Month            int             `gorm:"not null;uniqueIndex:idx_revenue_month_year" json:"month"`
	Year             int             `gorm:"not null;uniqueIndex:idx_revenue_month_year" json:"year"`
	TotalRevenue     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_revenue"`
	TotalExpense     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_expense"`
	Profit           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"profit"`
	CourseSalesCount int64           `gorm:"default:0" json:"course_sales_count"`
	NewUsersCount    int64           `gorm:"default:0" json:"new_users_count"`
}
