package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment holds the provider-side record of an invoice
type Payment struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
	InvoiceID        uint                `gorm:"not null;uniqueIndex" json:"invoice_id"`
	OrderID          string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	RequestID        string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`
	Amount           decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status           PaymentStatus       `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Provider         string              `gorm:"type:varchar(20);not null;default:'MOMO'" json:"provider"`
	PayURL           string              `gorm:"type:text" json:"pay_url,omitempty"`
	MomoTransID      string              `gorm:"type:varchar(64);index" json:"momo_trans_id,omitempty"`
	MomoResultCode   *int                `json:"momo_result_code,omitempty"`
	MomoMessage      string              `gorm:"type:text" json:"momo_message,omitempty"`
	MomoResponseTime int64               `json:"momo_response_time,omitempty"`
	Signature        string              `gorm:"type:varchar(128)" json:"-"`
	RawResponse      datatypes.JSON      `json:"-"`
	RefundTransID    string              `gorm:"type:varchar(64)" json:"refund_trans_id,omitempty"`
	RefundAmount     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"refund_amount"`
	RefundedAt       *time.Time          `json:"refunded_at,omitempty"`
}
