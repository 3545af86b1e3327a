package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/database/testdb"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/services/momo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const validSignature = "valid-signature"

type fakeGateway struct {
	createResp *momo.CreateResponse
	createErr  error
	refundResp *momo.RefundResponse
	refundErr  error

	creates []momo.CreatePaymentInput
	refunds []momo.RefundInput
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		createResp: &momo.CreateResponse{ResultCode: momo.ResultSuccess, Message: "Successful.", PayURL: "https://test-payment.momo.vn/pay/abc"},
		refundResp: &momo.RefundResponse{ResultCode: momo.ResultSuccess, Message: "Successful.", TransID: 9000001},
	}
}

func (g *fakeGateway) CreatePayment(_ context.Context, in momo.CreatePaymentInput) (*momo.CreateResponse, []byte, error) {
	g.creates = append(g.creates, in)
	if g.createErr != nil {
		return nil, nil, g.createErr
	}
	resp := *g.createResp
	resp.OrderID = in.OrderID
	resp.RequestID = in.RequestID
	resp.Amount = in.Amount
	return &resp, []byte(`{"resultCode":` + fmt.Sprint(resp.ResultCode) + `}`), nil
}

func (g *fakeGateway) Refund(_ context.Context, in momo.RefundInput) (*momo.RefundResponse, error) {
	g.refunds = append(g.refunds, in)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.refundResp, nil
}

func (g *fakeGateway) VerifyCallback(cb *momo.Callback) bool {
	return cb.Signature == validSignature
}

type sentMail struct {
	kind string
	to   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to})
	return nil
}

func (m *fakeMailer) SendVerificationEmail(to, _, _ string) error { return m.record("verification", to) }
func (m *fakeMailer) SendPasswordResetEmail(to, _, _ string) error { return m.record("reset", to) }
func (m *fakeMailer) SendWelcomeEmail(to, _ string) error { return m.record("welcome", to) }
func (m *fakeMailer) SendPaymentReceipt(to, _ string, _ *model.Invoice, _ string) error {
	return m.record("receipt", to)
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

var errSMTPDown = errors.New("smtp: connection refused")

func createUser(t *testing.T, db *gorm.DB, username string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Status:       model.UserStatusActive,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createCourse(t *testing.T, db *gorm.DB, title string, price int64, status model.CourseStatus) *model.Course {
	t.Helper()
	c := &model.Course{
		Title:  title,
		Price:  decimal.NewFromInt(price),
		Status: status,
		Level:  model.LevelBeginner,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

var invoiceSeq int

func createInvoice(t *testing.T, db *gorm.DB, userID, courseID uint, total int64, status model.InvoiceStatus, paidAt *time.Time) *model.Invoice {
	t.Helper()
	invoiceSeq++
	inv := &model.Invoice{
		InvoiceNumber: fmt.Sprintf("INV-TEST-%04d", invoiceSeq),
		UserID:        userID,
		CourseID:      courseID,
		Amount:        decimal.NewFromInt(total),
		TotalAmount:   decimal.NewFromInt(total),
		Status:        status,
		PaymentMethod: model.PaymentMethodMoMo,
		PaidAt:        paidAt,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

type paymentFixture struct {
	db      *gorm.DB
	gateway *fakeGateway
	mailer  *fakeMailer
	svc     *PaymentService
	buyer   *model.User
	course  *model.Course
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := testdb.New(t)
	f := &paymentFixture{
		db:      db,
		gateway: newFakeGateway(),
		mailer:  &fakeMailer{},
		buyer:   createUser(t, db, "buyer", model.RoleUser),
		course:  createCourse(t, db, "Go Fundamentals", 150000, model.CourseStatusPublished),
	}
	f.svc = NewPaymentService(db, f.gateway, f.mailer)
	return f
}

// pending opens a PENDING invoice through the service and returns its order id
func (f *paymentFixture) pending(t *testing.T) *CreatePaymentResult {
	t.Helper()
	res, err := f.svc.CreatePayment(context.Background(), f.buyer.ID, CreatePaymentInput{CourseID: f.course.ID})
	require.NoError(t, err)
	return res
}

func (f *paymentFixture) callback(orderID string, transID int64, resultCode int) *momo.Callback {
	return &momo.Callback{
		OrderID:    orderID,
		RequestID:  orderID,
		Amount:     150000,
		TransID:    transID,
		ResultCode: resultCode,
		Message:    "Successful.",
		Signature:  validSignature,
	}
}

func (f *paymentFixture) invoice(t *testing.T, id uint) model.Invoice {
	t.Helper()
	var inv model.Invoice
	require.NoError(t, f.db.Preload("Payment").First(&inv, id).Error)
	return inv
}

func (f *paymentFixture) enrolled(t *testing.T) bool {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", f.buyer.ID, f.course.ID).Count(&count).Error)
	return count > 0
}
