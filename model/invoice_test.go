package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to InvoiceStatus
		want     bool
	}{
		{InvoiceStatusPending, InvoiceStatusPaid, true},
		{InvoiceStatusPending, InvoiceStatusFailed, true},
		{InvoiceStatusPending, InvoiceStatusCancelled, true},
		{InvoiceStatusPending, InvoiceStatusRefunded, false},
		{InvoiceStatusPaid, InvoiceStatusRefunded, true},
		{InvoiceStatusPaid, InvoiceStatusCancelled, false},
		{InvoiceStatusPaid, InvoiceStatusPaid, false},
		{InvoiceStatusFailed, InvoiceStatusPaid, false},
		{InvoiceStatusCancelled, InvoiceStatusPaid, false},
		{InvoiceStatusRefunded, InvoiceStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			inv := Invoice{Status: tt.from}
			assert.Equal(t, tt.want, inv.CanTransitionTo(tt.to))
		})
	}
}

func TestHasTransaction(t *testing.T) {
	inv := Invoice{}
	assert.False(t, inv.HasTransaction("123"))

	tx := "123"
	inv.TransactionID = &tx
	assert.True(t, inv.HasTransaction("123"))
	assert.False(t, inv.HasTransaction("456"))
}

func TestEffectivePrice(t *testing.T) {
	price := decimal.NewFromInt(500000)

	c := Course{Price: price}
	assert.True(t, c.EffectivePrice().Equal(price))

	c.DiscountPrice = decimal.NewNullDecimal(decimal.NewFromInt(350000))
	assert.True(t, c.EffectivePrice().Equal(decimal.NewFromInt(350000)))

	// a discount above the list price is ignored
	c.DiscountPrice = decimal.NewNullDecimal(decimal.NewFromInt(900000))
	assert.True(t, c.EffectivePrice().Equal(price))

	c = Course{Price: decimal.Zero}
	assert.True(t, c.IsFree())
}
