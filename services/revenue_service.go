package services

import (
	"context"
	"sort"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type YearlyTotals struct {
	Year             int             `json:"year"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Profit           decimal.Decimal `json:"profit"`
	CourseSalesCount int64           `json:"course_sales_count"`
	NewUsersCount    int64           `json:"new_users_count"`
	Months           int             `json:"months"`
}

type RevenueService struct {
	db  *gorm.DB
	now Clock
}

func NewRevenueService(db *gorm.DB) *RevenueService {
	return &RevenueService{db: db, now: utcNow}
}

func validMonth(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return apperror.BadRequest("Month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return apperror.BadRequest("Invalid year")
	}
	return nil
}

// GenerateMonthly computes the rollup for one calendar month and upserts it
func (s *RevenueService) GenerateMonthly(ctx context.Context, year int, month time.Month) (*model.Revenue, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}

	var revenue *model.Revenue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		revenue, err = s.generate(tx, year, month)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Int("year", year).
		Int("month", int(month)).
		Str("revenue", revenue.TotalRevenue.StringFixed(2)).
		Str("profit", revenue.Profit.StringFixed(2)).
		Msg("monthly revenue generated")
	return revenue, nil
}

func (s *RevenueService) generate(tx *gorm.DB, year int, month time.Month) (*model.Revenue, error) {
	r := MonthRange(year, month)

	income, err := paidRevenue(tx, r)
	if err != nil {
		return nil, err
	}
	expense, err := approvedExpenses(tx, r)
	if err != nil {
		return nil, err
	}

	var sales int64
	err = tx.Model(&model.Invoice{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", model.InvoiceStatusPaid, r.From, r.To).
		Count(&sales).Error
	if err != nil {
		return nil, err
	}

	var newUsers int64
	err = tx.Model(&model.User{}).
		Where("created_at >= ? AND created_at < ?", r.From, r.To).
		Count(&newUsers).Error
	if err != nil {
		return nil, err
	}

	revenue := model.Revenue{
		Month:            int(month),
		Year:             year,
		TotalRevenue:     income,
		TotalExpense:     expense,
		Profit:           income.Sub(expense),
		CourseSalesCount: sales,
		NewUsersCount:    newUsers,
	}

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_revenue", "total_expense", "profit",
			"course_sales_count", "new_users_count", "updated_at",
		}),
	}).Create(&revenue).Error
	if err != nil {
		return nil, err
	}

	// the upsert does not report the existing row id on every driver
	var stored model.Revenue
	if err := tx.Where("month = ? AND year = ?", int(month), year).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// RecalculateAll regenerates every month that has a rollup or a paid invoice
func (s *RevenueService) RecalculateAll(ctx context.Context) ([]model.Revenue, error) {
	var results []model.Revenue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[yearMonth]bool{}

		var existing []model.Revenue
		if err := tx.Select("month", "year").Find(&existing).Error; err != nil {
			return err
		}
		for _, r := range existing {
			seen[yearMonth{r.Year, time.Month(r.Month)}] = true
		}

		var paidAt []time.Time
		err := tx.Model(&model.Invoice{}).
			Where("status = ? AND paid_at IS NOT NULL", model.InvoiceStatusPaid).
			Pluck("paid_at", &paidAt).Error
		if err != nil {
			return err
		}
		for _, t := range paidAt {
			t = t.UTC()
			seen[yearMonth{t.Year(), t.Month()}] = true
		}

		months := make([]yearMonth, 0, len(seen))
		for ym := range seen {
			months = append(months, ym)
		}
		sort.Slice(months, func(i, j int) bool {
			if months[i].year != months[j].year {
				return months[i].year < months[j].year
			}
			return months[i].month < months[j].month
		})

		for _, ym := range months {
			revenue, err := s.generate(tx, ym.year, ym.month)
			if err != nil {
				return err
			}
			results = append(results, *revenue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Int("months", len(results)).Msg("revenue recalculated")
	return results, nil
}

func (s *RevenueService) Get(ctx context.Context, year int, month time.Month) (*model.Revenue, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}

	var revenue model.Revenue
	err := s.db.WithContext(ctx).Where("month = ? AND year = ?", int(month), year).First(&revenue).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Revenue record not found")
		}
		return nil, err
	}
	return &revenue, nil
}

func (s *RevenueService) ListByYear(ctx context.Context, year int) ([]model.Revenue, error) {
	var revenues []model.Revenue
	err := s.db.WithContext(ctx).Where("year = ?", year).Order("month").Find(&revenues).Error
	return revenues, err
}

func (s *RevenueService) YearlyTotals(ctx context.Context, year int) (*YearlyTotals, error) {
	revenues, err := s.ListByYear(ctx, year)
	if err != nil {
		return nil, err
	}

	totals := &YearlyTotals{
		Year:         year,
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
		Profit:       decimal.Zero,
		Months:       len(revenues),
	}
	for _, r := range revenues {
		totals.TotalRevenue = totals.TotalRevenue.Add(r.TotalRevenue)
		totals.TotalExpense = totals.TotalExpense.Add(r.TotalExpense)
		totals.Profit = totals.Profit.Add(r.Profit)
		totals.CourseSalesCount += r.CourseSalesCount
		totals.NewUsersCount += r.NewUsersCount
	}
	return totals, nil
}
