package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clock returns the current time; services take one so tests can pin it
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// DateRange is a half-open [From, To) interval
type DateRange struct {
	From time.Time
	To   time.Time
}

// MonthRange returns the given calendar month in UTC
func MonthRange(year int, month time.Month) DateRange {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 1, 0)}
}

// CurrentMonth returns the calendar month of now
func CurrentMonth(now time.Time) DateRange {
	return MonthRange(now.Year(), now.Month())
}

// OrDefault fills missing bounds from def
func (r DateRange) OrDefault(def DateRange) DateRange {
	if r.From.IsZero() {
		r.From = def.From
	}
	if r.To.IsZero() {
		r.To = def.To
	}
	return r
}

// newOrderID returns ORDER_ followed by ten hex characters
func newOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORDER_" + hex[:10]
}

// newInvoiceNumber returns INV-<yyyymmdd>-<8 hex>
func newInvoiceNumber(now time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "INV-" + now.Format("20060102") + "-" + hex[:8]
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func sumDecimals(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// normalizePage clamps page to >= 1 and limit to 1..100, defaulting to 10
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}

// grantEnrollment creates the (user, course) enrollment unless it already exists
func grantEnrollment(tx *gorm.DB, userID, courseID uint, source model.EnrollmentSource, invoiceID *uint, now time.Time) error {
	enrollment := model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		InvoiceID:  invoiceID,
		Source:     source,
		EnrolledAt: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&enrollment).Error
}

func revokeEnrollment(tx *gorm.DB, userID, courseID uint) error {
	return tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&model.Enrollment{}).Error
}

// forUpdate row-locks the selected rows until the transaction ends. The sqlite
// dialect drops the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// transitionInvoice moves inv to next only if its status is unchanged in the
// database. It returns false when another writer got there first.
func transitionInvoice(tx *gorm.DB, inv *model.Invoice, next model.InvoiceStatus, updates map[string]interface{}) (bool, error) {
	if !inv.CanTransitionTo(next) {
		return false, nil
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = next

	result := tx.Model(&model.Invoice{}).
		Where("id = ? AND status = ?", inv.ID, inv.Status).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	metrics.Transition(string(inv.Status), string(next))
	inv.Status = next
	return true, nil
}
