package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, m...)
	return nil
}

func TestEmailServiceNotConfigured(t *testing.T) {
	svc := &EmailService{sender: &captureSender{}, appURL: "http://localhost:3000"}
	err := svc.SendWelcomeEmail("a@example.com", "Alice")
	assert.ErrorIs(t, err, ErrSMTPNotConfigured)
}

func TestEmailServiceSendsReceipt(t *testing.T) {
	sender := &captureSender{}
	svc := &EmailService{sender: sender, from: "noreply@example.com", appURL: "http://localhost:3000", configured: true}

	paidAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	trans := "4088878653"
	inv := &model.Invoice{InvoiceNumber: "INV-1", TotalAmount: decimal.NewFromInt(150000), PaidAt: &paidAt, TransactionID: &trans}

	require.NoError(t, svc.SendPaymentReceipt("a@example.com", "Alice", inv, "Go <Basics>"))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"a@example.com"}, msg.GetHeader("To"))
	assert.True(t, strings.Contains(msg.GetHeader("Subject")[0], "INV-1"))
}

func TestEmailServiceWrapsDialError(t *testing.T) {
	svc := &EmailService{sender: &captureSender{err: errors.New("dial tcp: timeout")}, configured: true}
	err := svc.SendVerificationEmail("a@example.com", "", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}
