package services

import (
	"context"
	"strings"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/services/storage"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/pdfvalidation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseInput struct {
	Description string          `json:"description" validate:"required,min=3,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=100"`
	ExpenseDate *time.Time      `json:"expense_date"`
	Notes       string          `json:"notes" validate:"max=2000"`
}

type ExpenseFilter struct {
	Page     int
	Limit    int
	Category string
	Approved *bool
	Range    DateRange
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

type ExpenseSummary struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Total      decimal.Decimal `json:"total"`
	Approved   decimal.Decimal `json:"approved"`
	Pending    decimal.Decimal `json:"pending"`
	Count      int64           `json:"count"`
	ByCategory []CategoryTotal `json:"by_category"`
}

type ExpenseService struct {
	db       *gorm.DB
	uploader storage.Uploader
	now      Clock
}

// NewExpenseService accepts a nil uploader; receipt uploads then fail with BadRequest
func NewExpenseService(db *gorm.DB, uploader storage.Uploader) *ExpenseService {
	return &ExpenseService{db: db, uploader: uploader, now: utcNow}
}

func validateExpense(in *ExpenseInput) error {
	if !in.Amount.IsPositive() {
		return apperror.BadRequest("Amount must be greater than zero")
	}
	return nil
}

func (s *ExpenseService) Create(ctx context.Context, createdBy uint, in ExpenseInput) (*model.Expense, error) {
	if err := validateExpense(&in); err != nil {
		return nil, err
	}

	expense := model.Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		ExpenseDate: s.now(),
		Notes:       in.Notes,
		CreatedBy:   createdBy,
	}
	if in.ExpenseDate != nil {
		expense.ExpenseDate = in.ExpenseDate.UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&expense).Error
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *ExpenseService) Get(ctx context.Context, id uint) (*model.Expense, error) {
	return s.find(s.db.WithContext(ctx), id)
}

func (s *ExpenseService) find(db *gorm.DB, id uint) (*model.Expense, error) {
	var expense model.Expense
	if err := db.First(&expense, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Expense not found")
		}
		return nil, err
	}
	return &expense, nil
}

// Update refuses approved expenses so approved totals stay stable
func (s *ExpenseService) Update(ctx context.Context, id uint, in ExpenseInput) (*model.Expense, error) {
	if err := validateExpense(&in); err != nil {
		return nil, err
	}

	var expense *model.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if expense, err = s.find(tx, id); err != nil {
			return err
		}
		if expense.IsApproved {
			return apperror.BadRequest("Approved expenses cannot be modified")
		}

		expense.Description = strings.TrimSpace(in.Description)
		expense.Amount = in.Amount
		expense.Category = strings.TrimSpace(in.Category)
		expense.Notes = in.Notes
		if in.ExpenseDate != nil {
			expense.ExpenseDate = in.ExpenseDate.UTC()
		}
		return tx.Save(expense).Error
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := s.find(tx, id)
		if err != nil {
			return err
		}
		if expense.IsApproved {
			return apperror.BadRequest("Approved expenses cannot be deleted")
		}
		return tx.Delete(expense).Error
	})
}

func (s *ExpenseService) List(ctx context.Context, f ExpenseFilter) ([]model.Expense, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	query := s.db.WithContext(ctx).Model(&model.Expense{})

	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Approved != nil {
		query = query.Where("is_approved = ?", *f.Approved)
	}
	if !f.Range.From.IsZero() {
		query = query.Where("expense_date >= ?", f.Range.From)
	}
	if !f.Range.To.IsZero() {
		query = query.Where("expense_date < ?", f.Range.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []model.Expense
	err := query.Order("expense_date DESC, id DESC").Offset(offset(f.Page, f.Limit)).Limit(f.Limit).Find(&expenses).Error
	return expenses, total, err
}

func (s *ExpenseService) Approve(ctx context.Context, id, adminID uint) (*model.Expense, error) {
	var expense *model.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if expense, err = s.find(tx, id); err != nil {
			return err
		}
		if expense.IsApproved {
			return apperror.BadRequest("Expense is already approved")
		}

		now := s.now()
		expense.IsApproved = true
		expense.ApprovedBy = &adminID
		expense.ApprovedAt = &now
		return tx.Model(expense).Updates(map[string]interface{}{
			"is_approved": true,
			"approved_by": adminID,
			"approved_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// Reject clears a previous approval and records the reason in the notes
func (s *ExpenseService) Reject(ctx context.Context, id, adminID uint, reason string) (*model.Expense, error) {
	var expense *model.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if expense, err = s.find(tx, id); err != nil {
			return err
		}

		now := s.now()
		note := "Rejected: " + strings.TrimSpace(reason)
		if expense.Notes != "" {
			note = expense.Notes + "\n" + note
		}

		expense.IsApproved = false
		expense.ApprovedBy = &adminID
		expense.ApprovedAt = &now
		expense.Notes = note
		return tx.Model(expense).Updates(map[string]interface{}{
			"is_approved": false,
			"approved_by": adminID,
			"approved_at": now,
			"notes":       note,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&model.Expense{}).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

// TotalApproved defaults to the current month
func (s *ExpenseService) TotalApproved(ctx context.Context, r DateRange) (decimal.Decimal, error) {
	return approvedExpenses(s.db.WithContext(ctx), r.OrDefault(CurrentMonth(s.now())))
}

// TotalsByCategory sums approved expenses per category, defaulting to the current month
func (s *ExpenseService) TotalsByCategory(ctx context.Context, r DateRange) ([]CategoryTotal, error) {
	r = r.OrDefault(CurrentMonth(s.now()))

	var expenses []model.Expense
	err := s.db.WithContext(ctx).
		Select("category", "amount").
		Where("is_approved = ? AND expense_date >= ? AND expense_date < ?", true, r.From, r.To).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}

	return groupByCategory(expenses), nil
}

func (s *ExpenseService) MonthlySummary(ctx context.Context, year int, month time.Month) (*ExpenseSummary, error) {
	r := MonthRange(year, month)

	var expenses []model.Expense
	err := s.db.WithContext(ctx).
		Where("expense_date >= ? AND expense_date < ?", r.From, r.To).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}

	summary := &ExpenseSummary{
		Year:     year,
		Month:    int(month),
		Total:    decimal.Zero,
		Approved: decimal.Zero,
		Pending:  decimal.Zero,
		Count:    int64(len(expenses)),
	}

	var approved []model.Expense
	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		if e.IsApproved {
			summary.Approved = summary.Approved.Add(e.Amount)
			approved = append(approved, e)
		} else {
			summary.Pending = summary.Pending.Add(e.Amount)
		}
	}
	summary.ByCategory = groupByCategory(approved)
	return summary, nil
}

// AttachReceipt validates a PDF receipt, uploads it and stores its URL on the expense
func (s *ExpenseService) AttachReceipt(ctx context.Context, id uint, filename string, content []byte) (*model.Expense, error) {
	if s.uploader == nil {
		return nil, apperror.BadRequest("Receipt uploads are not enabled")
	}

	check := pdfvalidation.Validate(filename, content, pdfvalidation.ReceiptLimits)
	if !check.Valid {
		return nil, apperror.BadRequest("%s", check.Error)
	}

	expense, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.ReceiptKey(expense.ID, filename, s.now())
	url, err := s.uploader.Upload(ctx, key, content, "application/pdf")
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(expense).Update("receipt_url", url).Error
	})
	if err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			logger.Warn(ctx).Err(delErr).Str("key", key).Msg("failed to remove orphaned receipt")
		}
		return nil, err
	}

	expense.ReceiptURL = url
	logger.Info(ctx).Uint("expense_id", id).Int("pages", check.PageCount).Msg("receipt attached")
	return expense, nil
}

func approvedExpenses(db *gorm.DB, r DateRange) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.Model(&model.Expense{}).
		Where("is_approved = ? AND expense_date >= ? AND expense_date < ?", true, r.From, r.To).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumDecimals(amounts), nil
}

func groupByCategory(expenses []model.Expense) []CategoryTotal {
	index := map[string]int{}
	totals := []CategoryTotal{}
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(totals)
			index[e.Category] = i
			totals = append(totals, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
		totals[i].Count++
	}
	return totals
}
