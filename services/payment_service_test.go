package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestCreatePayment(t *testing.T) {
	f := newPaymentFixture(t)

	res := f.pending(t)

	assert.True(t, strings.HasPrefix(res.OrderID, "ORDER_"))
	assert.Len(t, res.OrderID, len("ORDER_")+10)
	assert.Equal(t, res.OrderID, res.RequestID)
	assert.Equal(t, "https://test-payment.momo.vn/pay/abc", res.PayURL)
	assert.Equal(t, string(model.InvoiceStatusPending), res.Status)

	require.Len(t, f.gateway.creates, 1)
	assert.Equal(t, int64(150000), f.gateway.creates[0].Amount)

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "INV-"))
	require.NotNil(t, inv.Payment)
	assert.Equal(t, model.PaymentStatusPending, inv.Payment.Status)
	assert.Equal(t, res.PayURL, inv.Payment.PayURL)
}

func TestCreatePaymentUsesDiscountPrice(t *testing.T) {
	f := newPaymentFixture(t)
	require.NoError(t, f.db.Model(f.course).Update("discount_price", "99000").Error)

	res := f.pending(t)
	assert.Equal(t, "99000", res.Amount.String())

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, "51000", inv.DiscountAmount.String())
}

func TestCreatePaymentRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown course", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.CreatePayment(ctx, f.buyer.ID, CreatePaymentInput{CourseID: 9999})
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("draft course", func(t *testing.T) {
		f := newPaymentFixture(t)
		draft := createCourse(t, f.db, "Draft", 100000, model.CourseStatusDraft)
		_, err := f.svc.CreatePayment(ctx, f.buyer.ID, CreatePaymentInput{CourseID: draft.ID})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	t.Run("already purchased", func(t *testing.T) {
		f := newPaymentFixture(t)
		paidAt := time.Now().UTC()
		createInvoice(t, f.db, f.buyer.ID, f.course.ID, 150000, model.InvoiceStatusPaid, &paidAt)

		_, err := f.svc.CreatePayment(ctx, f.buyer.ID, CreatePaymentInput{CourseID: f.course.ID})
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Equal(t, "User has already purchased this course", apperror.MessageOf(err))
		assert.Empty(t, f.gateway.creates)
	})
}

func TestCreatePaymentProviderRejects(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.createResp.ResultCode = 1001
	f.gateway.createResp.Message = "Insufficient balance"

	res, err := f.svc.CreatePayment(context.Background(), f.buyer.ID, CreatePaymentInput{CourseID: f.course.ID})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	assert.Equal(t, "Insufficient balance", apperror.MessageOf(err))
	require.NotNil(t, res)

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, model.InvoiceStatusFailed, inv.Status)
	assert.Equal(t, model.PaymentStatusFailed, inv.Payment.Status)
}

func TestCreatePaymentTransportErrorRollsBack(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.createErr = errors.New("dial tcp: i/o timeout")

	_, err := f.svc.CreatePayment(context.Background(), f.buyer.ID, CreatePaymentInput{CourseID: f.course.ID})
	assert.True(t, apperror.Is(err, apperror.KindProvider))

	var invoices, payments int64
	f.db.Model(&model.Invoice{}).Count(&invoices)
	f.db.Model(&model.Payment{}).Count(&payments)
	assert.Zero(t, invoices)
	assert.Zero(t, payments)
}

func TestHandleCallbackSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	res := f.pending(t)

	out, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 4088878653, 0))
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, out.Status)
	assert.False(t, out.Replayed)

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.TransactionID)
	assert.Equal(t, "4088878653", *inv.TransactionID)
	assert.NotNil(t, inv.PaidAt)
	assert.Equal(t, model.PaymentStatusSuccess, inv.Payment.Status)
	assert.Equal(t, "4088878653", inv.Payment.MomoTransID)
	assert.True(t, f.enrolled(t))
	assert.Equal(t, 1, f.mailer.count("receipt"))

	t.Run("replay is a no-op", func(t *testing.T) {
		again, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 4088878653, 0))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, model.InvoiceStatusPaid, again.Status)
		assert.Equal(t, 1, f.mailer.count("receipt"))

		var enrollments int64
		f.db.Model(&model.Enrollment{}).Count(&enrollments)
		assert.Equal(t, int64(1), enrollments)
	})

	t.Run("different transaction on paid invoice", func(t *testing.T) {
		_, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 1111, 0))
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})
}

// payInvoiceOnFirstUpdate commits a PAID status with transID just before the
// service writes the invoice, as a concurrent delivery of the IPN would.
func payInvoiceOnFirstUpdate(t *testing.T, db *gorm.DB, invoiceID uint, transID string) *bool {
	t.Helper()
	fired := false
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:paid_elsewhere", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "invoices" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"UPDATE invoices SET status = ?, transaction_id = ? WHERE id = ?",
			string(model.InvoiceStatusPaid), transID, invoiceID,
		)
	}))
	return &fired
}

func TestHandleCallbackConcurrentDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("same transaction is a replay", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		fired := payInvoiceOnFirstUpdate(t, f.db, res.InvoiceID, "4088878653")

		out, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 4088878653, 0))
		require.NoError(t, err)
		assert.True(t, *fired)
		assert.True(t, out.Replayed)
		assert.Equal(t, model.InvoiceStatusPaid, out.Status)
		assert.Zero(t, f.mailer.count("receipt"))
	})

	t.Run("other transaction is rejected", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		fired := payInvoiceOnFirstUpdate(t, f.db, res.InvoiceID, "777")

		_, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 4088878653, 0))
		assert.True(t, *fired)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})
}

func TestPaymentRowsAreLockedForUpdate(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=lessionprm dbname=lessionprm sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	stmt := forUpdate(db).First(&model.Invoice{}, 7).Statement
	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestHandleCallbackReceiptFailureIsSwallowed(t *testing.T) {
	f := newPaymentFixture(t)
	f.mailer.err = errSMTPDown
	res := f.pending(t)

	out, err := f.svc.HandleCallback(context.Background(), f.callback(res.OrderID, 42, 0))
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, out.Status)
}

func TestHandleCallbackInvalidSignature(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.pending(t)

	cb := f.callback(res.OrderID, 42, 0)
	cb.Signature = "forged"

	_, err := f.svc.HandleCallback(context.Background(), cb)
	assert.True(t, apperror.Is(err, apperror.KindInvalidSignature))

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, model.PaymentStatusPending, inv.Payment.Status)
	assert.False(t, f.enrolled(t))
}

func TestHandleCallbackFailureCode(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.pending(t)

	out, err := f.svc.HandleCallback(context.Background(), f.callback(res.OrderID, 42, 1006))
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusFailed, out.Status)

	inv := f.invoice(t, res.InvoiceID)
	assert.Equal(t, model.InvoiceStatusFailed, inv.Status)
	assert.Equal(t, "MoMo payment failed: 1006", inv.Notes)
	assert.Equal(t, model.PaymentStatusFailed, inv.Payment.Status)
	assert.False(t, f.enrolled(t))
	assert.Zero(t, f.mailer.count("receipt"))
}

func TestHandleCallbackRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown order", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.HandleCallback(ctx, f.callback("ORDER_missing", 1, 0))
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("amount mismatch", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		cb := f.callback(res.OrderID, 1, 0)
		cb.Amount = 1000

		_, err := f.svc.HandleCallback(ctx, cb)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Equal(t, model.InvoiceStatusPending, f.invoice(t, res.InvoiceID).Status)
	})

	t.Run("transaction reused by another invoice", func(t *testing.T) {
		f := newPaymentFixture(t)
		first := f.pending(t)
		_, err := f.svc.HandleCallback(ctx, f.callback(first.OrderID, 777, 0))
		require.NoError(t, err)

		other := createCourse(t, f.db, "Rust", 150000, model.CourseStatusPublished)
		second, err := f.svc.CreatePayment(ctx, f.buyer.ID, CreatePaymentInput{CourseID: other.ID})
		require.NoError(t, err)

		_, err = f.svc.HandleCallback(ctx, f.callback(second.OrderID, 777, 0))
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Equal(t, model.InvoiceStatusPending, f.invoice(t, second.InvoiceID).Status)
	})

	t.Run("invoice no longer pending", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		require.NoError(t, f.db.Model(&model.Invoice{}).Where("id = ?", res.InvoiceID).
			Update("status", model.InvoiceStatusCancelled).Error)

		_, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 5, 0))
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.False(t, f.enrolled(t))
	})
}

func TestGetStatus(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	res := f.pending(t)

	status, err := f.svc.GetStatus(ctx, f.buyer.ID, res.OrderID, false)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, status.InvoiceStatus)
	assert.Equal(t, "Go Fundamentals", status.CourseTitle)

	stranger := createUser(t, f.db, "stranger", model.RoleUser)
	_, err = f.svc.GetStatus(ctx, stranger.ID, res.OrderID, false)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.GetStatus(ctx, stranger.ID, res.OrderID, true)
	assert.NoError(t, err)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("not paid", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)

		_, err := f.svc.Refund(ctx, res.InvoiceID, "")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Equal(t, "Cannot refund invoice that is not paid", apperror.MessageOf(err))
		assert.Empty(t, f.gateway.refunds)
	})

	t.Run("success", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		_, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 4088878653, 0))
		require.NoError(t, err)

		inv, err := f.svc.Refund(ctx, res.InvoiceID, "customer request")
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceStatusRefunded, inv.Status)
		assert.NotNil(t, inv.RefundedAt)

		require.Len(t, f.gateway.refunds, 1)
		req := f.gateway.refunds[0]
		assert.Equal(t, int64(4088878653), req.TransID)
		assert.Equal(t, int64(150000), req.Amount)
		assert.True(t, strings.HasPrefix(req.RequestID, "refund_"+res.OrderID+"_"))

		require.NotNil(t, inv.Payment)
		assert.Equal(t, model.PaymentStatusRefunded, inv.Payment.Status)
		assert.Equal(t, "9000001", inv.Payment.RefundTransID)
		assert.True(t, inv.Payment.RefundAmount.Valid)
		assert.Equal(t, "150000", inv.Payment.RefundAmount.Decimal.String())
		assert.False(t, f.enrolled(t))

		_, err = f.svc.Refund(ctx, res.InvoiceID, "")
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Len(t, f.gateway.refunds, 1, "second refund must not reach MoMo")
	})

	t.Run("provider failure keeps invoice paid", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.pending(t)
		_, err := f.svc.HandleCallback(ctx, f.callback(res.OrderID, 31337, 0))
		require.NoError(t, err)

		f.gateway.refundErr = errors.New("connection reset")
		_, err = f.svc.Refund(ctx, res.InvoiceID, "")
		assert.True(t, apperror.Is(err, apperror.KindProvider))

		inv := f.invoice(t, res.InvoiceID)
		assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
		assert.Equal(t, model.PaymentStatusSuccess, inv.Payment.Status)
		assert.True(t, f.enrolled(t))
	})
}
