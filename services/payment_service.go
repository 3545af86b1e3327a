package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/services/momo"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreatePaymentInput struct {
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	OrderInfo string `json:"order_info" validate:"max=255"`
	ExtraData string `json:"extra_data" validate:"max=1000"`
}

type CreatePaymentResult struct {
	InvoiceID     uint            `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	OrderID       string          `json:"order_id"`
	RequestID     string          `json:"request_id"`
	Amount        decimal.Decimal `json:"amount"`
	PayURL        string          `json:"pay_url,omitempty"`
	ResultCode    int             `json:"result_code"`
	Message       string          `json:"message"`
	Status        string          `json:"status"`
}

type CallbackResult struct {
	OrderID  string              `json:"order_id"`
	Status   model.InvoiceStatus `json:"status"`
	Replayed bool                `json:"replayed"`
}

type PaymentStatusResult struct {
	OrderID       string              `json:"order_id"`
	InvoiceID     uint                `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceStatus model.InvoiceStatus `json:"invoice_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Amount        decimal.Decimal     `json:"amount"`
	CourseID      uint                `json:"course_id"`
	CourseTitle   string              `json:"course_title,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Message       string              `json:"message,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

type PaymentService struct {
	db      *gorm.DB
	gateway momo.Gateway
	mailer  Mailer
	now     Clock
}

func NewPaymentService(db *gorm.DB, gateway momo.Gateway, mailer Mailer) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, mailer: mailer, now: utcNow}
}

// CreatePayment opens a PENDING invoice for the course and asks MoMo for a pay URL.
// A transport failure rolls the invoice back; a business rejection by MoMo is
// kept as a FAILED invoice and reported as BadRequest.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uint, in CreatePaymentInput) (*CreatePaymentResult, error) {
	var result *CreatePaymentResult
	var rejected bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.First(&course, in.CourseID).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Course not found")
			}
			return err
		}
		if !course.IsPurchasable() {
			return apperror.BadRequest("Course is not available for purchase")
		}
		if course.IsFree() {
			return apperror.BadRequest("Course is free, enroll directly")
		}

		var paid int64
		if err := tx.Model(&model.Invoice{}).
			Where("user_id = ? AND course_id = ? AND status = ?", userID, course.ID, model.InvoiceStatusPaid).
			Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return apperror.BadRequest("User has already purchased this course")
		}

		now := s.now()
		total := course.EffectivePrice()
		orderID := newOrderID()

		invoice := model.Invoice{
			InvoiceNumber:  newInvoiceNumber(now),
			UserID:         userID,
			CourseID:       course.ID,
			Amount:         course.Price,
			DiscountAmount: course.Price.Sub(total),
			TotalAmount:    total,
			Status:         model.InvoiceStatusPending,
			PaymentMethod:  model.PaymentMethodMoMo,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		payment := model.Payment{
			InvoiceID: invoice.ID,
			OrderID:   orderID,
			RequestID: orderID,
			Amount:    total,
			Status:    model.PaymentStatusPending,
			Provider:  model.PaymentMethodMoMo,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		resp, raw, err := s.gateway.CreatePayment(ctx, momo.CreatePaymentInput{
			OrderID:   orderID,
			RequestID: orderID,
			Amount:    total.IntPart(),
			OrderInfo: in.OrderInfo,
			ExtraData: in.ExtraData,
		})
		if err != nil {
			return apperror.Provider(err, "Failed to create MoMo payment")
		}

		resultCode := resp.ResultCode
		paymentUpdates := map[string]interface{}{
			"momo_result_code":   resultCode,
			"momo_message":       resp.Message,
			"momo_response_time": resp.ResponseTime,
			"signature":          resp.Signature,
			"raw_response":       datatypes.JSON(raw),
		}

		result = &CreatePaymentResult{
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			OrderID:       orderID,
			RequestID:     orderID,
			Amount:        total,
			ResultCode:    resultCode,
			Message:       resp.Message,
			Status:        string(model.InvoiceStatusPending),
		}

		if resultCode == momo.ResultSuccess {
			paymentUpdates["pay_url"] = resp.PayURL
			result.PayURL = resp.PayURL
			if err := tx.Model(&invoice).Update("payment_url", resp.PayURL).Error; err != nil {
				return err
			}
			return tx.Model(&payment).Updates(paymentUpdates).Error
		}

		rejected = true
		result.Status = string(model.InvoiceStatusFailed)
		paymentUpdates["status"] = model.PaymentStatusFailed
		if err := tx.Model(&payment).Updates(paymentUpdates).Error; err != nil {
			return err
		}
		_, err = transitionInvoice(tx, &invoice, model.InvoiceStatusFailed, map[string]interface{}{
			"notes": fmt.Sprintf("MoMo create failed: %d %s", resultCode, resp.Message),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if rejected {
		logger.Warn(ctx).Str("order_id", result.OrderID).Int("result_code", result.ResultCode).Msg("momo rejected payment")
		return result, apperror.BadRequest("%s", result.Message)
	}

	logger.Info(ctx).Str("order_id", result.OrderID).Uint("invoice_id", result.InvoiceID).Msg("momo payment created")
	return result, nil
}

// HandleCallback applies a provider IPN. Replaying an already applied
// transaction is a no-op success.
func (s *PaymentService) HandleCallback(ctx context.Context, cb *momo.Callback) (*CallbackResult, error) {
	if !s.gateway.VerifyCallback(cb) {
		metrics.PaymentCallbacks.WithLabelValues(metrics.CallbackInvalidSignature).Inc()
		logger.Warn(ctx).Str("order_id", cb.OrderID).Msg("momo callback with invalid signature")
		return nil, apperror.InvalidSignature("Invalid signature")
	}

	transID := strconv.FormatInt(cb.TransID, 10)
	result := &CallbackResult{OrderID: cb.OrderID}
	var paidInvoice *model.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		if err := tx.Where("order_id = ?", cb.OrderID).First(&payment).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Payment not found")
			}
			return err
		}

		var invoice model.Invoice
		if err := forUpdate(tx).First(&invoice, payment.InvoiceID).Error; err != nil {
			return err
		}

		if invoice.Status == model.InvoiceStatusPaid && invoice.HasTransaction(transID) {
			result.Status = invoice.Status
			result.Replayed = true
			return nil
		}

		if invoice.Status != model.InvoiceStatusPending {
			return apperror.BadRequest("Invoice is no longer pending (status: %s)", invoice.Status)
		}

		now := s.now()
		resultCode := cb.ResultCode
		paymentUpdates := map[string]interface{}{
			"momo_trans_id":      transID,
			"momo_result_code":   resultCode,
			"momo_message":       cb.Message,
			"momo_response_time": cb.ResponseTime,
		}
		if raw, err := json.Marshal(cb); err == nil {
			paymentUpdates["raw_response"] = datatypes.JSON(raw)
		}

		if resultCode != momo.ResultSuccess {
			paymentUpdates["status"] = model.PaymentStatusFailed
			if err := tx.Model(&payment).Updates(paymentUpdates).Error; err != nil {
				return err
			}
			ok, err := transitionInvoice(tx, &invoice, model.InvoiceStatusFailed, map[string]interface{}{
				"notes": fmt.Sprintf("MoMo payment failed: %d", resultCode),
			})
			if err != nil {
				return err
			}
			if !ok {
				return apperror.BadRequest("Invoice is no longer pending")
			}
			result.Status = invoice.Status
			return nil
		}

		if cb.Amount != invoice.TotalAmount.IntPart() {
			return apperror.BadRequest("Callback amount %d does not match invoice total %s", cb.Amount, invoice.TotalAmount.StringFixed(0))
		}

		var used int64
		if err := tx.Model(&model.Invoice{}).
			Where("transaction_id = ? AND id <> ?", transID, invoice.ID).
			Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return apperror.BadRequest("Transaction %s is already applied to another invoice", transID)
		}

		ok, err := transitionInvoice(tx, &invoice, model.InvoiceStatusPaid, map[string]interface{}{
			"transaction_id": transID,
			"paid_at":        now,
		})
		if err != nil {
			return err
		}
		if !ok {
			applied, err := appliedBy(tx, invoice.ID, transID)
			if err != nil {
				return err
			}
			if !applied {
				return apperror.BadRequest("Invoice is no longer pending")
			}
			result.Status = model.InvoiceStatusPaid
			result.Replayed = true
			return nil
		}

		paymentUpdates["status"] = model.PaymentStatusSuccess
		if err := tx.Model(&payment).Updates(paymentUpdates).Error; err != nil {
			return err
		}

		if err := grantEnrollment(tx, invoice.UserID, invoice.CourseID, model.EnrollmentSourcePayment, &invoice.ID, now); err != nil {
			return err
		}

		invoice.TransactionID = &transID
		invoice.PaidAt = &now
		paidInvoice = &invoice
		result.Status = invoice.Status
		return nil
	})
	if err != nil {
		if apperror.Is(err, apperror.KindBadRequest) || apperror.Is(err, apperror.KindNotFound) {
			metrics.PaymentCallbacks.WithLabelValues(metrics.CallbackRejected).Inc()
			logger.Warn(ctx).Err(err).Str("order_id", cb.OrderID).Msg("momo callback rejected")
		}
		return nil, err
	}

	switch {
	case result.Replayed:
		metrics.PaymentCallbacks.WithLabelValues(metrics.CallbackReplay).Inc()
		logger.Info(ctx).Str("order_id", cb.OrderID).Str("trans_id", transID).Msg("momo callback replay ignored")
	case paidInvoice != nil:
		metrics.PaymentCallbacks.WithLabelValues(metrics.CallbackPaid).Inc()
		logger.Info(ctx).Str("order_id", cb.OrderID).Uint("invoice_id", paidInvoice.ID).Msg("invoice paid")
		s.sendReceipt(ctx, paidInvoice)
	default:
		metrics.PaymentCallbacks.WithLabelValues(metrics.CallbackFailed).Inc()
		logger.Info(ctx).Str("order_id", cb.OrderID).Int("result_code", cb.ResultCode).Msg("momo payment failed")
	}

	return result, nil
}

// appliedBy reports whether the invoice was already paid with transID by a
// callback that committed first
func appliedBy(tx *gorm.DB, invoiceID uint, transID string) (bool, error) {
	var current model.Invoice
	if err := tx.First(&current, invoiceID).Error; err != nil {
		return false, err
	}
	return current.Status == model.InvoiceStatusPaid && current.HasTransaction(transID), nil
}

func (s *PaymentService) sendReceipt(ctx context.Context, invoice *model.Invoice) {
	var user model.User
	var course model.Course
	db := s.db.WithContext(ctx)
	if err := db.First(&user, invoice.UserID).Error; err != nil {
		logger.Warn(ctx).Err(err).Uint("invoice_id", invoice.ID).Msg("failed to load buyer for receipt")
		return
	}
	if err := db.Unscoped().First(&course, invoice.CourseID).Error; err != nil {
		logger.Warn(ctx).Err(err).Uint("invoice_id", invoice.ID).Msg("failed to load course for receipt")
		return
	}

	if err := s.mailer.SendPaymentReceipt(user.Email, user.FullName(), invoice, course.Title); err != nil {
		logger.Warn(ctx).Err(err).Uint("invoice_id", invoice.ID).Msg("failed to send payment receipt")
	}
}

// GetStatus returns the state of an order; non-admins only see their own orders
func (s *PaymentService) GetStatus(ctx context.Context, userID uint, orderID string, isAdmin bool) (*PaymentStatusResult, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Payment not found")
		}
		return nil, err
	}

	var invoice model.Invoice
	if err := s.db.WithContext(ctx).Preload("Course", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&invoice, payment.InvoiceID).Error; err != nil {
		return nil, err
	}
	if !isAdmin && invoice.UserID != userID {
		return nil, apperror.NotFound("Payment not found")
	}

	status := &PaymentStatusResult{
		OrderID:       payment.OrderID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceStatus: invoice.Status,
		PaymentStatus: payment.Status,
		Amount:        payment.Amount,
		CourseID:      invoice.CourseID,
		Message:       payment.MomoMessage,
		PaidAt:        invoice.PaidAt,
	}
	if invoice.Course != nil {
		status.CourseTitle = invoice.Course.Title
	}
	if invoice.TransactionID != nil {
		status.TransactionID = *invoice.TransactionID
	}
	return status, nil
}

// Refund returns the full invoice total to the buyer and revokes the enrollment.
// If MoMo does not confirm, nothing changes locally. The invoice row stays locked
// across the provider call so concurrent refunds send at most one request.
func (s *PaymentService) Refund(ctx context.Context, invoiceID uint, reason string) (*model.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice model.Invoice
		if err := forUpdate(tx).First(&invoice, invoiceID).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Invoice not found")
			}
			return err
		}
		if invoice.Status != model.InvoiceStatusPaid {
			return apperror.BadRequest("Cannot refund invoice that is not paid")
		}

		var payment model.Payment
		if err := tx.Where("invoice_id = ?", invoice.ID).First(&payment).Error; err != nil {
			if isNotFound(err) {
				return apperror.BadRequest("Invoice has no provider payment to refund")
			}
			return err
		}

		transID, err := strconv.ParseInt(payment.MomoTransID, 10, 64)
		if err != nil {
			return apperror.BadRequest("Invoice has no MoMo transaction to refund")
		}

		now := s.now()
		description := reason
		if description == "" {
			description = "Refund for invoice " + invoice.InvoiceNumber
		}

		resp, err := s.gateway.Refund(ctx, momo.RefundInput{
			OrderID:     payment.OrderID,
			RequestID:   fmt.Sprintf("refund_%s_%d", payment.OrderID, now.UnixMilli()),
			Amount:      invoice.TotalAmount.IntPart(),
			TransID:     transID,
			Description: description,
		})
		if err != nil {
			return apperror.Provider(err, "Failed to refund MoMo payment")
		}
		if resp.ResultCode != momo.ResultSuccess {
			return apperror.Provider(nil, "MoMo refund failed: %s", resp.Message)
		}

		ok, err := transitionInvoice(tx, &invoice, model.InvoiceStatusRefunded, map[string]interface{}{
			"refunded_at": now,
			"notes":       description,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperror.BadRequest("Cannot refund invoice that is not paid")
		}

		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":          model.PaymentStatusRefunded,
			"refund_trans_id": strconv.FormatInt(resp.TransID, 10),
			"refund_amount":   decimal.NewNullDecimal(invoice.TotalAmount),
			"refunded_at":     now,
		}).Error; err != nil {
			return err
		}

		return revokeEnrollment(tx, invoice.UserID, invoice.CourseID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("invoice_id", invoiceID).Msg("invoice refunded")

	var invoice model.Invoice
	if err := s.db.WithContext(ctx).Preload("Payment").First(&invoice, invoiceID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}
