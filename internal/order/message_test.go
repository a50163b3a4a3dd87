package order

import (
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormatter(t *testing.T) {
	f := newMoneyFormatter("₹")

	tests := map[string]string{
		"0":          "₹0.00",
		"999.5":      "₹999.50",
		"12499":      "₹12,499.00",
		"1234567.89": "₹1,234,567.89",
		"-20":        "-₹20.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, f.format(decimal.RequireFromString(in)), in)
	}
}

func TestRenderMessage(t *testing.T) {
	o := &Order{
		OrderNumber:     "ORD-1700000000000-AB12CD",
		CustomerName:    "Priya Sharma",
		CustomerPhone:   "+91 98765 43210",
		ShippingAddress: "12 MG Road, Pune",
		TotalAmount:     decimal.RequireFromString("5497.00"),
		Lines: []Line{
			{ProductName: "Banarasi Saree", SKU: "SAR-01", Color: "Red", UnitPrice: decimal.RequireFromString("3499"), Quantity: 1, LineTotal: decimal.RequireFromString("3499")},
			{ProductName: "Cotton Kurta", Size: "M", UnitPrice: decimal.RequireFromString("999"), Quantity: 2, LineTotal: decimal.RequireFromString("1998")},
		},
	}

	msg, err := renderMessage(o, "Rang Mahal", "₹", "We will confirm shortly.")
	require.NoError(t, err)

	want := `*New order ORD-1700000000000-AB12CD*
Rang Mahal

*Customer*
Name: Priya Sharma
Phone: +91 98765 43210
Address: 12 MG Road, Pune

*Items*
1. Banarasi Saree (Color: Red) [SAR-01]
   1 x ₹3,499.00 = ₹3,499.00
2. Cotton Kurta (Size: M)
   2 x ₹999.00 = ₹1,998.00

*Total: ₹5,497.00*

We will confirm shortly.`
	assert.Equal(t, want, msg)
}

func TestRenderMessage_OptionalFields(t *testing.T) {
	o := &Order{
		OrderNumber:   "ORD-1-AAAAAA",
		CustomerName:  "A",
		CustomerPhone: "1",
		Notes:         "Gift wrap please",
		TotalAmount:   decimal.NewFromInt(10),
		Lines:         []Line{{ProductName: "Dupatta", UnitPrice: decimal.NewFromInt(10), Quantity: 1, LineTotal: decimal.NewFromInt(10)}},
	}

	msg, err := renderMessage(o, "", "Rs.", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "*New order ORD-1-AAAAAA*\n\n*Customer*"))
	assert.NotContains(t, msg, "Email:")
	assert.NotContains(t, msg, "Address:")
	assert.True(t, strings.HasSuffix(msg, "Notes: Gift wrap please"))
	assert.Contains(t, msg, "1 x Rs.10.00 = Rs.10.00")
}

func TestWhatsAppURL(t *testing.T) {
	link := whatsAppURL("919876543210", "Hello there & 1+1")
	assert.Equal(t, "https://wa.me/919876543210?text=Hello%20there%20%26%201%2B1", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Hello there & 1+1", u.Query().Get("text"))
}

func TestNewOrderNumber(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	pattern := regexp.MustCompile(`^ORD-1700000000123-[A-Z0-9]{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n, err := newOrderNumber(now)
		require.NoError(t, err)
		require.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusSent, StatusReceived, true},
		{StatusSent, StatusConfirmed, true},
		{StatusSent, StatusCompleted, false},
		{StatusReceived, StatusSent, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCancelled, StatusSent, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.False(t, Status("shipped").Valid())
	assert.Equal(t, "confirmed_at", StatusConfirmed.timestampColumn())
	assert.Empty(t, StatusSent.timestampColumn())
}
