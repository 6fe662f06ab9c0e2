package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tally/pkg/types"
)

var testNow = time.Date(2026, 5, 3, 10, 30, 0, 0, time.UTC)

func product(id, wallet string, price int64) types.Product {
	return types.Product{ID: id, Name: id, Price: price, WalletID: wallet}
}

func TestAutoWallet(t *testing.T) {
	tests := []struct {
		name  string
		items []types.Product
		want  string
	}{
		{"empty cart uses fallback", nil, "fallback"},
		{"tie goes to earlier wallet", []types.Product{product("a", "A", 1000), product("b", "B", 1000)}, "A"},
		{"tie regardless of cart order", []types.Product{product("b", "B", 1000), product("a", "A", 1000)}, "A"},
		{"largest sum wins", []types.Product{product("a", "A", 500), product("b", "B", 1500)}, "B"},
		{"quantities count", []types.Product{product("a", "A", 600), product("a", "A", 600), product("b", "B", 1000)}, "A"},
		{"unlisted wallets lose to listed", []types.Product{product("x", "gone", 5000)}, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			for _, p := range tt.items {
				c.Add(p)
			}
			assert.Equal(t, tt.want, c.AutoWallet(testWallets, "fallback"))
		})
	}
}

func TestCartTotals(t *testing.T) {
	var c Cart
	c.SetManual(decimal.NewFromInt(777))
	assert.True(t, c.Final().Equal(decimal.NewFromInt(777)), "empty cart charges manual amount")

	c.Add(product("a", "A", 1200))
	c.Add(product("a", "A", 1200))
	c.Add(product("b", "B", 500))

	assert.Equal(t, int64(2900), c.Total())
	assert.True(t, c.Final().Equal(decimal.NewFromInt(2900)))
	assert.Equal(t, map[string]int64{"A": 2400, "B": 500}, c.ByWallet())
	require.Len(t, c.Lines(), 2)
	assert.Equal(t, 2, c.Lines()[0].Qty)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, int64(500), c.Total())

	c.Clear()
	assert.True(t, c.Empty())
	assert.True(t, c.Final().IsZero())
}

func TestCloneIsIndependent(t *testing.T) {
	var c Cart
	c.Add(product("a", "A", 1200))
	c.Override("B")

	cp := c.Clone()
	_, err := cp.Checkout(Payment{Method: types.PaymentCashless}, testWallets, "A", testNow)
	require.NoError(t, err)
	assert.True(t, cp.Empty())

	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 1, c.Lines()[0].Qty)
	assert.True(t, c.Overridden())

	c.Add(product("a", "A", 1200))
	assert.True(t, cp.Empty(), "adding to the original leaves the clone alone")
}

func TestOverrideLastsUntilCartChanges(t *testing.T) {
	var c Cart
	c.Add(product("a", "A", 1000))
	c.Add(product("b", "B", 500))
	assert.Equal(t, "A", c.ActiveWallet(testWallets, "A"))

	c.Override("B")
	assert.True(t, c.Overridden())
	assert.Equal(t, "B", c.ActiveWallet(testWallets, "A"))

	c.Add(product("b", "B", 500))
	assert.False(t, c.Overridden())
	assert.Equal(t, "A", c.ActiveWallet(testWallets, "A"), "tie after change goes back to auto")

	c.Override("B")
	c.Remove("b")
	assert.False(t, c.Overridden())
}

func TestActiveWalletEmptyCartUsesSelected(t *testing.T) {
	var c Cart
	c.Override("A")
	assert.Equal(t, "B", c.ActiveWallet(testWallets, "B"))
}

func TestChange(t *testing.T) {
	tests := []struct {
		name     string
		payment  string
		received string
		final    int64
		want     int64
		ok       bool
	}{
		{"exact change", types.PaymentCash, "1000", 1000, 0, true},
		{"change due", types.PaymentCash, "5000", 3200, 1800, true},
		{"insufficient", types.PaymentCash, "1000", 1200, -200, true},
		{"rounds half up", types.PaymentCash, "1000.5", 1000, 1, true},
		{"negative half rounds up", types.PaymentCash, "999.5", 1000, 0, true},
		{"nothing received", types.PaymentCash, "", 1000, 0, false},
		{"cashless", types.PaymentCashless, "5000", 1000, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Change(tt.payment, ParseAmount(tt.received), decimal.NewFromInt(tt.final))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckoutCart(t *testing.T) {
	var c Cart
	c.Add(product("a", "A", 1200))
	c.Add(product("a", "A", 1200))
	c.Add(product("b", "B", 500))

	sales, err := c.Checkout(Payment{Method: types.PaymentCash, Received: decimal.NewFromInt(3000)}, testWallets, "A", testNow)
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, int64(2400), sales[0].Amount)
	assert.Equal(t, "A", sales[0].WalletID)
	assert.Equal(t, "a", sales[0].ProductID)
	assert.Equal(t, int64(500), sales[1].Amount)
	assert.Equal(t, "B", sales[1].WalletID)

	assert.NotEmpty(t, sales[0].CheckoutID)
	assert.Equal(t, sales[0].CheckoutID, sales[1].CheckoutID)
	assert.NotEqual(t, sales[0].ID, sales[1].ID)
	for _, s := range sales {
		require.NotNil(t, s.CashReceived)
		assert.Equal(t, int64(3000), *s.CashReceived)
		assert.Equal(t, types.TimestampOf(testNow), s.At)
	}
	assert.True(t, c.Empty(), "checkout clears the cart")
}

func TestCheckoutManualAmount(t *testing.T) {
	var c Cart
	c.SetManual(ParseAmount("¥1,499.5"))

	sales, err := c.Checkout(Payment{Method: types.PaymentCashless, Received: decimal.NewFromInt(2000)}, testWallets, "B", testNow)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, int64(1500), sales[0].Amount)
	assert.Equal(t, "B", sales[0].WalletID)
	assert.Nil(t, sales[0].CashReceived, "cashless sales carry no received amount")
	assert.Empty(t, sales[0].CheckoutID)
	assert.Empty(t, sales[0].ProductID)
}

func TestCheckoutRejects(t *testing.T) {
	tests := []struct {
		name    string
		manual  string
		method  string
		wantErr error
	}{
		{"zero amount", "0", types.PaymentCash, types.ErrInvalidAmount},
		{"negative amount", "-100", types.PaymentCash, types.ErrInvalidAmount},
		{"garbage amount", "abc", types.PaymentCash, types.ErrInvalidAmount},
		{"unknown payment", "100", "barter", types.ErrInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			c.SetManual(ParseAmount(tt.manual))
			sales, err := c.Checkout(Payment{Method: tt.method}, testWallets, "A", testNow)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, sales)
			assert.True(t, c.Final().Equal(ParseAmount(tt.manual)), "cart unchanged on error")
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1200", "1200"},
		{"¥1,200", "1200"},
		{" 3 500 円", "3500"},
		{"12.5", "12.5"},
		{"-300", "-300"},
		{"", "0"},
		{"abc", "0"},
		{"1.2.3", "0"},
		{"-", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, ParseAmount(tt.in).Equal(decimal.RequireFromString(tt.want)), "got %s", ParseAmount(tt.in))
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, int64(2), RoundFloat(1.5))
	assert.Equal(t, int64(1), RoundFloat(1.49))
	assert.Equal(t, int64(0), RoundFloat(-0.5))
	assert.Equal(t, int64(-1), RoundFloat(-0.51))
}
