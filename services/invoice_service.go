package services

import (
	"context"
	"strings"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceExpiry is how long an invoice may stay PENDING
const InvoiceExpiry = 24 * time.Hour

const expiryNote = "Automatically cancelled due to expiry"

type InvoiceFilter struct {
	Page   int
	Limit  int
	Status string
	UserID uint
	Range  DateRange
}

type InvoiceStats struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Total       int64           `json:"total"`
	Pending     int64           `json:"pending"`
	Paid        int64           `json:"paid"`
	Failed      int64           `json:"failed"`
	Cancelled   int64           `json:"cancelled"`
	Refunded    int64           `json:"refunded"`
	PaidRevenue decimal.Decimal `json:"paid_revenue"`
}

type InvoiceService struct {
	db  *gorm.DB
	now Clock
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db, now: utcNow}
}

func (s *InvoiceService) ListForUser(ctx context.Context, userID uint, page, limit int) ([]model.Invoice, int64, error) {
	return s.List(ctx, InvoiceFilter{Page: page, Limit: limit, UserID: userID})
}

// GetForUser hides invoices that belong to someone else
func (s *InvoiceService) GetForUser(ctx context.Context, userID, id uint) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, apperror.NotFound("Invoice not found")
	}
	return inv, nil
}

func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter) ([]model.Invoice, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	query := s.db.WithContext(ctx).Model(&model.Invoice{})

	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(f.Status))
	}
	if !f.Range.From.IsZero() {
		query = query.Where("created_at >= ?", f.Range.From)
	}
	if !f.Range.To.IsZero() {
		query = query.Where("created_at < ?", f.Range.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []model.Invoice
	err := query.Preload("Course").Preload("Payment").
		Order("created_at DESC").
		Offset(offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&invoices).Error
	return invoices, total, err
}

func (s *InvoiceService) GetByID(ctx context.Context, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.WithContext(ctx).Preload("User").Preload("Course").Preload("Payment").First(&inv, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Invoice not found")
		}
		return nil, err
	}
	return &inv, nil
}

// MarkPaid is an admin override; it enrolls the buyer like a provider callback would
func (s *InvoiceService) MarkPaid(ctx context.Context, id uint, transactionID string) (*model.Invoice, error) {
	return s.override(ctx, id, model.InvoiceStatusPaid, func(tx *gorm.DB, inv *model.Invoice, now time.Time) (map[string]interface{}, error) {
		updates := map[string]interface{}{"paid_at": now}
		if transactionID != "" {
			var count int64
			if err := tx.Model(&model.Invoice{}).Where("transaction_id = ? AND id <> ?", transactionID, inv.ID).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, apperror.BadRequest("Transaction id is already used by another invoice")
			}
			updates["transaction_id"] = transactionID
		}
		return updates, nil
	}, func(tx *gorm.DB, inv *model.Invoice, now time.Time) error {
		if err := tx.Model(&model.Payment{}).Where("invoice_id = ?", inv.ID).Update("status", model.PaymentStatusSuccess).Error; err != nil {
			return err
		}
		return grantEnrollment(tx, inv.UserID, inv.CourseID, model.EnrollmentSourcePayment, &inv.ID, now)
	})
}

func (s *InvoiceService) MarkFailed(ctx context.Context, id uint, reason string) (*model.Invoice, error) {
	return s.override(ctx, id, model.InvoiceStatusFailed, func(_ *gorm.DB, _ *model.Invoice, _ time.Time) (map[string]interface{}, error) {
		return map[string]interface{}{"notes": reason}, nil
	}, func(tx *gorm.DB, inv *model.Invoice, _ time.Time) error {
		return tx.Model(&model.Payment{}).Where("invoice_id = ?", inv.ID).Update("status", model.PaymentStatusFailed).Error
	})
}

func (s *InvoiceService) MarkCancelled(ctx context.Context, id uint, reason string) (*model.Invoice, error) {
	return s.override(ctx, id, model.InvoiceStatusCancelled, func(_ *gorm.DB, _ *model.Invoice, now time.Time) (map[string]interface{}, error) {
		return map[string]interface{}{"notes": reason, "cancelled_at": now}, nil
	}, func(tx *gorm.DB, inv *model.Invoice, _ time.Time) error {
		return tx.Model(&model.Payment{}).Where("invoice_id = ?", inv.ID).Update("status", model.PaymentStatusCancelled).Error
	})
}

func (s *InvoiceService) override(
	ctx context.Context,
	id uint,
	next model.InvoiceStatus,
	build func(tx *gorm.DB, inv *model.Invoice, now time.Time) (map[string]interface{}, error),
	after func(tx *gorm.DB, inv *model.Invoice, now time.Time) error,
) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Invoice not found")
			}
			return err
		}
		if !inv.CanTransitionTo(next) {
			return apperror.BadRequest("Cannot change invoice status from %s to %s", inv.Status, next)
		}

		now := s.now()
		updates, err := build(tx, &inv, now)
		if err != nil {
			return err
		}

		ok, err := transitionInvoice(tx, &inv, next, updates)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.BadRequest("Invoice was modified concurrently, please retry")
		}
		return after(tx, &inv, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("invoice_id", id).Str("status", string(next)).Msg("invoice status overridden")
	return s.GetByID(ctx, id)
}

// Statistics defaults to the current month when the range is empty
func (s *InvoiceService) Statistics(ctx context.Context, r DateRange) (*InvoiceStats, error) {
	r = r.OrDefault(CurrentMonth(s.now()))
	db := s.db.WithContext(ctx)

	type statusRow struct {
		Status model.InvoiceStatus
		Total  int64
	}
	var rows []statusRow
	err := db.Model(&model.Invoice{}).
		Select("status, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", r.From, r.To).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &InvoiceStats{From: r.From, To: r.To}
	for _, row := range rows {
		stats.Total += row.Total
		switch row.Status {
		case model.InvoiceStatusPending:
			stats.Pending = row.Total
		case model.InvoiceStatusPaid:
			stats.Paid = row.Total
		case model.InvoiceStatusFailed:
			stats.Failed = row.Total
		case model.InvoiceStatusCancelled:
			stats.Cancelled = row.Total
		case model.InvoiceStatusRefunded:
			stats.Refunded = row.Total
		}
	}

	revenue, err := paidRevenue(db, r)
	if err != nil {
		return nil, err
	}
	stats.PaidRevenue = revenue
	return stats, nil
}

// ExpirePending cancels every PENDING invoice created more than InvoiceExpiry before now
func (s *InvoiceService) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-InvoiceExpiry)

	var expired int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Invoice{}).
			Where("status = ? AND created_at < ?", model.InvoiceStatusPending, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		result := tx.Model(&model.Invoice{}).
			Where("id IN ? AND status = ?", ids, model.InvoiceStatusPending).
			Updates(map[string]interface{}{
				"status":       model.InvoiceStatusCancelled,
				"cancelled_at": now,
				"notes":        expiryNote,
			})
		if result.Error != nil {
			return result.Error
		}
		expired = result.RowsAffected

		return tx.Model(&model.Payment{}).
			Where("invoice_id IN ? AND status = ?", ids, model.PaymentStatusPending).
			Update("status", model.PaymentStatusCancelled).Error
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		metrics.InvoicesExpired.Add(float64(expired))
		metrics.InvoiceTransitions.WithLabelValues(string(model.InvoiceStatusPending), string(model.InvoiceStatusCancelled)).Add(float64(expired))
		logger.Info(ctx).Int64("count", expired).Msg("expired pending invoices")
	}
	return expired, nil
}

// paidRevenue sums PAID invoice totals by paid_at
func paidRevenue(db *gorm.DB, r DateRange) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := db.Model(&model.Invoice{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", model.InvoiceStatusPaid, r.From, r.To).
		Pluck("total_amount", &totals).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumDecimals(totals), nil
}
