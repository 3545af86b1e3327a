package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/database/testdb"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiptPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>\nendobj\nxref\n0 4\n0000000000 65535 f \n0000000009 00000 n \n0000000058 00000 n \n0000000115 00000 n \ntrailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n186\n%%EOF\n"

type fakeUploader struct {
	keys    []string
	deleted []string
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
	return &t
}

func TestExpenseApprovalFlow(t *testing.T) {
	db := testdb.New(t)
	svc := NewExpenseService(db, nil)
	ctx := context.Background()
	admin := createUser(t, db, "root", model.RoleAdmin)

	_, err := svc.Create(ctx, admin.ID, ExpenseInput{Description: "Zero", Amount: decimal.Zero, Category: "Misc"})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	expense, err := svc.Create(ctx, admin.ID, ExpenseInput{
		Description: "Hosting",
		Amount:      decimal.NewFromInt(500000),
		Category:    "Infrastructure",
		ExpenseDate: day(2024, 3, 5),
	})
	require.NoError(t, err)
	assert.False(t, expense.IsApproved)

	approved, err := svc.Approve(ctx, expense.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.ID, *approved.ApprovedBy)

	_, err = svc.Approve(ctx, expense.ID, admin.ID)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = svc.Update(ctx, expense.ID, ExpenseInput{Description: "Hosting", Amount: decimal.NewFromInt(1), Category: "Infrastructure"})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	assert.True(t, apperror.Is(svc.Delete(ctx, expense.ID), apperror.KindBadRequest))

	rejected, err := svc.Reject(ctx, expense.ID, admin.ID, "duplicate")
	require.NoError(t, err)
	assert.False(t, rejected.IsApproved)
	assert.Contains(t, rejected.Notes, "Rejected: duplicate")

	require.NoError(t, svc.Delete(ctx, expense.ID))
	_, err = svc.Get(ctx, expense.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestExpenseTotals(t *testing.T) {
	db := testdb.New(t)
	svc := NewExpenseService(db, nil)
	ctx := context.Background()
	admin := createUser(t, db, "root", model.RoleAdmin)

	add := func(category string, amount int64, date *time.Time, approve bool) {
		e, err := svc.Create(ctx, admin.ID, ExpenseInput{Description: category + " cost", Amount: decimal.NewFromInt(amount), Category: category, ExpenseDate: date})
		require.NoError(t, err)
		if approve {
			_, err = svc.Approve(ctx, e.ID, admin.ID)
			require.NoError(t, err)
		}
	}
	add("Marketing", 100, day(2024, 3, 1), true)
	add("Marketing", 50, day(2024, 3, 20), true)
	add("Infrastructure", 70, day(2024, 3, 31), true)
	add("Infrastructure", 999, day(2024, 3, 15), false)
	add("Marketing", 400, day(2024, 4, 1), true)

	march := MonthRange(2024, time.March)

	total, err := svc.TotalApproved(ctx, march)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(220).Equal(total), total.String())

	byCategory, err := svc.TotalsByCategory(ctx, march)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	totals := map[string]decimal.Decimal{}
	for _, c := range byCategory {
		totals[c.Category] = c.Total
	}
	assert.True(t, decimal.NewFromInt(150).Equal(totals["Marketing"]))
	assert.True(t, decimal.NewFromInt(70).Equal(totals["Infrastructure"]))

	summary, err := svc.MonthlySummary(ctx, 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Count)
	assert.True(t, decimal.NewFromInt(1219).Equal(summary.Total))
	assert.True(t, decimal.NewFromInt(999).Equal(summary.Pending))

	approved := true
	list, count, err := svc.List(ctx, ExpenseFilter{Category: "Marketing", Approved: &approved})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Len(t, list, 3)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Infrastructure", "Marketing"}, categories)
}

func TestAttachReceipt(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	admin := createUser(t, db, "root", model.RoleAdmin)

	t.Run("uploads disabled", func(t *testing.T) {
		svc := NewExpenseService(db, nil)
		_, err := svc.AttachReceipt(ctx, 1, "r.pdf", []byte(receiptPDF))
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	uploader := &fakeUploader{}
	svc := NewExpenseService(db, uploader)
	expense, err := svc.Create(ctx, admin.ID, ExpenseInput{Description: "Hosting", Amount: decimal.NewFromInt(10), Category: "Infrastructure"})
	require.NoError(t, err)

	t.Run("rejects non pdf", func(t *testing.T) {
		_, err := svc.AttachReceipt(ctx, expense.ID, "photo.png", []byte("\x89PNG"))
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
		assert.Empty(t, uploader.keys)
	})

	t.Run("stores url", func(t *testing.T) {
		got, err := svc.AttachReceipt(ctx, expense.ID, "March Hosting.pdf", []byte(receiptPDF))
		require.NoError(t, err)
		require.Len(t, uploader.keys, 1)
		assert.Equal(t, "https://cdn.example.com/"+uploader.keys[0], got.ReceiptURL)

		stored, err := svc.Get(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, got.ReceiptURL, stored.ReceiptURL)
	})

	t.Run("upload failure", func(t *testing.T) {
		failing := NewExpenseService(db, &fakeUploader{err: errors.New("access denied")})
		_, err := failing.AttachReceipt(ctx, expense.ID, "r.pdf", []byte(receiptPDF))
		assert.Error(t, err)
	})
}
