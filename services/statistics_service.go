package services

import (
	"context"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardStats struct {
	Revenue struct {
		Total           decimal.Decimal `json:"total"`
		PaidInvoices    int64           `json:"paid_invoices"`
		PendingInvoices int64           `json:"pending_invoices"`
		FailedInvoices  int64           `json:"failed_invoices"`
	} `json:"revenue"`
	Courses struct {
		Total     int64 `json:"total"`
		Published int64 `json:"published"`
	} `json:"courses"`
	Users struct {
		Total    int64 `json:"total"`
		Admins   int64 `json:"admins"`
		NewUsers int64 `json:"new_users"`
	} `json:"users"`
	Expenses struct {
		Total   decimal.Decimal `json:"total"`
		Pending int64           `json:"pending"`
	} `json:"expenses"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type PaymentMethodStat struct {
	PaymentMethod string          `json:"payment_method"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

type RevenueStats struct {
	TotalRevenue   decimal.Decimal     `json:"total_revenue"`
	MonthlyRevenue decimal.Decimal     `json:"monthly_revenue"`
	PaidInvoices   int64               `json:"paid_invoices"`
	PaymentMethods []PaymentMethodStat `json:"payment_method_breakdown"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
}

type CourseStats struct {
	Total      int64                        `json:"total"`
	ByStatus   map[model.CourseStatus]int64 `json:"by_status"`
	Categories []string                     `json:"categories"`
	TopCourses []model.Course               `json:"top_courses"`
}

type UserStatsRange struct {
	Total    int64     `json:"total"`
	Regular  int64     `json:"regular"`
	Admins   int64     `json:"admins"`
	Active   int64     `json:"active"`
	NewUsers int64     `json:"new_users"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

type FinancialOverview struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
}

// StatisticsService aggregates read-only admin reports
type StatisticsService struct {
	db      *gorm.DB
	courses *CourseService
	now     Clock
}

func NewStatisticsService(db *gorm.DB, courses *CourseService) *StatisticsService {
	return &StatisticsService{db: db, courses: courses, now: utcNow}
}

// lastMonths returns [now - n months, now)
func lastMonths(now time.Time, n int) DateRange {
	return DateRange{From: now.AddDate(0, -n, 0), To: now}
}

func (s *StatisticsService) count(db *gorm.DB, m interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Count(&n).Error
	return n, err
}

// Dashboard defaults to the last month
func (s *StatisticsService) Dashboard(ctx context.Context, r DateRange) (*DashboardStats, error) {
	r = r.OrDefault(lastMonths(s.now(), 1))
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{From: r.From, To: r.To}

	var err error
	if stats.Revenue.Total, err = paidRevenue(db, r); err != nil {
		return nil, err
	}

	counts := []struct {
		dst   *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&stats.Revenue.PaidInvoices, &model.Invoice{}, "status = ? AND paid_at >= ? AND paid_at < ?", []interface{}{model.InvoiceStatusPaid, r.From, r.To}},
		{&stats.Revenue.PendingInvoices, &model.Invoice{}, "status = ?", []interface{}{model.InvoiceStatusPending}},
		{&stats.Revenue.FailedInvoices, &model.Invoice{}, "status = ?", []interface{}{model.InvoiceStatusFailed}},
		{&stats.Courses.Total, &model.Course{}, "", nil},
		{&stats.Courses.Published, &model.Course{}, "status = ?", []interface{}{model.CourseStatusPublished}},
		{&stats.Users.Total, &model.User{}, "role = ? AND status <> ?", []interface{}{model.RoleUser, model.UserStatusDeleted}},
		{&stats.Users.Admins, &model.User{}, "role = ? AND status <> ?", []interface{}{model.RoleAdmin, model.UserStatusDeleted}},
		{&stats.Users.NewUsers, &model.User{}, "created_at >= ? AND created_at < ?", []interface{}{r.From, r.To}},
		{&stats.Expenses.Pending, &model.Expense{}, "is_approved = ?", []interface{}{false}},
	}
	for _, c := range counts {
		if *c.dst, err = s.count(db, c.model, c.query, c.args...); err != nil {
			return nil, err
		}
	}

	if stats.Expenses.Total, err = approvedExpenses(db, r); err != nil {
		return nil, err
	}
	return stats, nil
}

// Revenue defaults to the last three months
func (s *StatisticsService) Revenue(ctx context.Context, r DateRange) (*RevenueStats, error) {
	now := s.now()
	r = r.OrDefault(lastMonths(now, 3))
	db := s.db.WithContext(ctx)
	stats := &RevenueStats{From: r.From, To: r.To}

	var err error
	if stats.TotalRevenue, err = paidRevenue(db, r); err != nil {
		return nil, err
	}
	if stats.MonthlyRevenue, err = paidRevenue(db, lastMonths(now, 1)); err != nil {
		return nil, err
	}
	stats.PaidInvoices, err = s.count(db, &model.Invoice{},
		"status = ? AND paid_at >= ? AND paid_at < ?", model.InvoiceStatusPaid, r.From, r.To)
	if err != nil {
		return nil, err
	}

	var paid []model.Invoice
	err = db.Select("payment_method", "total_amount").
		Where("status = ? AND paid_at >= ? AND paid_at < ?", model.InvoiceStatusPaid, r.From, r.To).
		Find(&paid).Error
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	stats.PaymentMethods = []PaymentMethodStat{}
	for _, inv := range paid {
		method := inv.PaymentMethod
		if method == "" {
			method = model.PaymentMethodMoMo
		}
		i, ok := index[method]
		if !ok {
			i = len(stats.PaymentMethods)
			index[method] = i
			stats.PaymentMethods = append(stats.PaymentMethods, PaymentMethodStat{PaymentMethod: method, Total: decimal.Zero})
		}
		stats.PaymentMethods[i].Count++
		stats.PaymentMethods[i].Total = stats.PaymentMethods[i].Total.Add(inv.TotalAmount)
	}
	return stats, nil
}

func (s *StatisticsService) Courses(ctx context.Context) (*CourseStats, error) {
	db := s.db.WithContext(ctx)

	type statusRow struct {
		Status model.CourseStatus
		Total  int64
	}
	var rows []statusRow
	err := db.Model(&model.Course{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &CourseStats{ByStatus: map[model.CourseStatus]int64{
		model.CourseStatusDraft:     0,
		model.CourseStatusPublished: 0,
		model.CourseStatusArchived:  0,
	}}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Total
		stats.Total += row.Total
	}

	if stats.Categories, err = s.courses.Categories(ctx); err != nil {
		return nil, err
	}
	if stats.TopCourses, err = s.courses.Popular(ctx, 5); err != nil {
		return nil, err
	}
	return stats, nil
}

// Users defaults to the last three months for the new user count
func (s *StatisticsService) Users(ctx context.Context, r DateRange) (*UserStatsRange, error) {
	r = r.OrDefault(lastMonths(s.now(), 3))
	db := s.db.WithContext(ctx)
	stats := &UserStatsRange{From: r.From, To: r.To}

	var err error
	if stats.Regular, err = s.count(db, &model.User{}, "role = ? AND status <> ?", model.RoleUser, model.UserStatusDeleted); err != nil {
		return nil, err
	}
	if stats.Admins, err = s.count(db, &model.User{}, "role = ? AND status <> ?", model.RoleAdmin, model.UserStatusDeleted); err != nil {
		return nil, err
	}
	if stats.Active, err = s.count(db, &model.User{}, "status = ?", model.UserStatusActive); err != nil {
		return nil, err
	}
	if stats.NewUsers, err = s.count(db, &model.User{}, "created_at >= ? AND created_at < ?", r.From, r.To); err != nil {
		return nil, err
	}
	stats.Total = stats.Regular + stats.Admins
	return stats, nil
}

// Financial defaults to the last month
func (s *StatisticsService) Financial(ctx context.Context, r DateRange) (*FinancialOverview, error) {
	r = r.OrDefault(lastMonths(s.now(), 1))
	db := s.db.WithContext(ctx)

	revenue, err := paidRevenue(db, r)
	if err != nil {
		return nil, err
	}
	expenses, err := approvedExpenses(db, r)
	if err != nil {
		return nil, err
	}

	net := revenue.Sub(expenses)
	return &FinancialOverview{
		TotalRevenue:  revenue,
		TotalExpenses: expenses,
		NetProfit:     net,
		ProfitMargin:  ProfitMargin(net, revenue),
		From:          r.From,
		To:            r.To,
	}, nil
}

// ProfitMargin is net/revenue rounded to four places, as a percentage. Zero revenue yields zero.
func ProfitMargin(net, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return net.DivRound(revenue, 4).Mul(decimal.NewFromInt(100))
}
