package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusFailed    InvoiceStatus = "FAILED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"
)

// invoiceTransitions lists every legal status edge
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusFailed, InvoiceStatusCancelled},
	InvoiceStatusPaid:    {InvoiceStatusRefunded},
}

// CanTransition reports whether from -> to is a legal lifecycle edge
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const PaymentMethodMoMo = "MOMO"

// Invoice is a purchase record for a single course
type Invoice struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
	InvoiceNumber  string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	CourseID       uint            `gorm:"not null;index" json:"course_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentMethod  string          `gorm:"type:varchar(30);default:'MOMO'" json:"payment_method"`
	TransactionID  *string         `gorm:"type:varchar(100);uniqueIndex" json:"transaction_id,omitempty"`
	PaymentURL     string          `gorm:"type:text" json:"payment_url,omitempty"`
	PaidAt         *time.Time      `gorm:"index" json:"paid_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Payment *Payment `gorm:"foreignKey:InvoiceID" json:"payment,omitempty"`
}

// CanTransitionTo reports whether the invoice may move to next
func (i *Invoice) CanTransitionTo(next InvoiceStatus) bool {
	return CanTransition(i.Status, next)
}

// HasTransaction reports whether the invoice was settled by the given provider transaction
func (i *Invoice) HasTransaction(transID string) bool {
	return i.TransactionID != nil && *i.TransactionID == transID
}
