package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/database/testdb"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirePending(t *testing.T) {
	db := testdb.New(t)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	user := createUser(t, db, "buyer", model.RoleUser)
	course := createCourse(t, db, "Go", 100000, model.CourseStatusPublished)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mk := func(number string, age time.Duration, status model.InvoiceStatus) model.Invoice {
		inv := model.Invoice{
			CreatedAt:     now.Add(-age),
			InvoiceNumber: number,
			UserID:        user.ID,
			CourseID:      course.ID,
			Amount:        decimal.NewFromInt(100000),
			TotalAmount:   decimal.NewFromInt(100000),
			Status:        status,
		}
		require.NoError(t, db.Create(&inv).Error)
		require.NoError(t, db.Create(&model.Payment{
			InvoiceID: inv.ID,
			OrderID:   "ORDER_" + number,
			RequestID: "ORDER_" + number,
			Amount:    inv.TotalAmount,
			Status:    model.PaymentStatusPending,
		}).Error)
		return inv
	}

	old := mk("old", 25*time.Hour, model.InvoiceStatusPending)
	young := mk("young", time.Hour, model.InvoiceStatusPending)
	failed := mk("failed", 48*time.Hour, model.InvoiceStatusFailed)

	count, err := svc.ExpirePending(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var got model.Invoice
	require.NoError(t, db.Preload("Payment").First(&got, old.ID).Error)
	assert.Equal(t, model.InvoiceStatusCancelled, got.Status)
	assert.Equal(t, "Automatically cancelled due to expiry", got.Notes)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, model.PaymentStatusCancelled, got.Payment.Status)

	var stillPending model.Invoice
	require.NoError(t, db.First(&stillPending, young.ID).Error)
	assert.Equal(t, model.InvoiceStatusPending, stillPending.Status)

	var stillFailed model.Invoice
	require.NoError(t, db.First(&stillFailed, failed.ID).Error)
	assert.Equal(t, model.InvoiceStatusFailed, stillFailed.Status)

	t.Run("second sweep is a no-op", func(t *testing.T) {
		count, err := svc.ExpirePending(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestInvoiceOverrides(t *testing.T) {
	db := testdb.New(t)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	user := createUser(t, db, "buyer", model.RoleUser)
	course := createCourse(t, db, "Go", 100000, model.CourseStatusPublished)

	t.Run("mark paid enrolls", func(t *testing.T) {
		inv := createInvoice(t, db, user.ID, course.ID, 100000, model.InvoiceStatusPending, nil)

		paid, err := svc.MarkPaid(ctx, inv.ID, "BANK-1")
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceStatusPaid, paid.Status)
		assert.NotNil(t, paid.PaidAt)

		var count int64
		db.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count)
		assert.Equal(t, int64(1), count)

		_, err = svc.MarkFailed(ctx, inv.ID, "too late")
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	t.Run("transaction id must be unique", func(t *testing.T) {
		inv := createInvoice(t, db, user.ID, course.ID, 100000, model.InvoiceStatusPending, nil)
		_, err := svc.MarkPaid(ctx, inv.ID, "BANK-1")
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	t.Run("cancel pending", func(t *testing.T) {
		inv := createInvoice(t, db, user.ID, course.ID, 100000, model.InvoiceStatusPending, nil)
		cancelled, err := svc.MarkCancelled(ctx, inv.ID, "duplicate order")
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceStatusCancelled, cancelled.Status)
		assert.Equal(t, "duplicate order", cancelled.Notes)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		_, err := svc.MarkCancelled(ctx, 9999, "")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})
}

func TestInvoiceOwnership(t *testing.T) {
	db := testdb.New(t)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	owner := createUser(t, db, "owner", model.RoleUser)
	other := createUser(t, db, "other", model.RoleUser)
	course := createCourse(t, db, "Go", 100000, model.CourseStatusPublished)
	inv := createInvoice(t, db, owner.ID, course.ID, 100000, model.InvoiceStatusPending, nil)

	got, err := svc.GetForUser(ctx, owner.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)

	_, err = svc.GetForUser(ctx, other.ID, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	list, total, err := svc.ListForUser(ctx, other.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestInvoiceStatistics(t *testing.T) {
	db := testdb.New(t)
	svc := NewInvoiceService(db)
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	user := createUser(t, db, "buyer", model.RoleUser)
	course := createCourse(t, db, "Go", 100000, model.CourseStatusPublished)
	createInvoice(t, db, user.ID, course.ID, 100000, model.InvoiceStatusPaid, &now)
	createInvoice(t, db, user.ID, course.ID, 50000, model.InvoiceStatusPaid, &now)
	createInvoice(t, db, user.ID, course.ID, 70000, model.InvoiceStatusPending, nil)
	createInvoice(t, db, user.ID, course.ID, 70000, model.InvoiceStatusFailed, nil)

	stats, err := svc.Statistics(context.Background(), DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Paid)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)
	assert.True(t, decimal.NewFromInt(150000).Equal(stats.PaidRevenue))
}
