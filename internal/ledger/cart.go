package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// Line is one product in the cart.
type Line struct {
	Product types.Product `json:"product"`
	Qty     int           `json:"qty"`
}

// Amount is price times quantity.
func (l Line) Amount() int64 {
	return l.Product.Price * int64(l.Qty)
}

// Cart collects products for one checkout. The zero value is an empty cart.
type Cart struct {
	lines    []Line
	override string
	manual   decimal.Decimal
}

// Add puts one unit of p in the cart. Adding clears the manual amount and
// any wallet override.
func (c *Cart) Add(p types.Product) {
	c.manual = decimal.Zero
	c.override = ""
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Qty++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Qty: 1})
}

// Remove drops the line for productID. Reports whether a line was removed.
func (c *Cart) Remove(productID string) bool {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
			c.override = ""
			return true
		}
	}
	return false
}

// Clear empties the cart, the manual amount and the override.
func (c *Cart) Clear() {
	c.lines = nil
	c.override = ""
	c.manual = decimal.Zero
}

// Clone returns an independent copy of the cart.
func (c *Cart) Clone() *Cart {
	return &Cart{lines: slices.Clone(c.lines), override: c.override, manual: c.manual}
}

// Lines returns a copy of the cart lines in the order they were added.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// SetManual sets the amount used when the cart is empty.
func (c *Cart) SetManual(amount decimal.Decimal) {
	c.manual = amount
}

// Total is the sum of line amounts.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Amount()
	}
	return total
}

// Final is the amount to charge: the cart total, or the manual amount when
// the cart is empty.
func (c *Cart) Final() decimal.Decimal {
	if c.Empty() {
		return c.manual
	}
	return decimal.NewFromInt(c.Total())
}

// ByWallet sums line amounts per product wallet.
func (c *Cart) ByWallet() map[string]int64 {
	sums := make(map[string]int64)
	for _, l := range c.lines {
		sums[l.Product.WalletID] += l.Amount()
	}
	return sums
}

// AutoWallet returns the wallet with the largest line sum. Ties go to the
// wallet listed first. An empty cart returns fallback.
func (c *Cart) AutoWallet(wallets []types.Wallet, fallback string) string {
	if c.Empty() {
		return fallback
	}
	sums := c.ByWallet()
	best := fallback
	bestAmount := int64(-1)
	for _, w := range wallets {
		if amt := sums[w.ID]; amt > bestAmount {
			bestAmount = amt
			best = w.ID
		}
	}
	return best
}

// Override pins the credited wallet until the cart next changes.
func (c *Cart) Override(walletID string) {
	c.override = walletID
}

// Overridden reports whether a manual wallet override is active.
func (c *Cart) Overridden() bool {
	return c.override != ""
}

// ActiveWallet is the wallet that absorbs cash for this checkout: the
// override, else the auto wallet. With an empty cart it is selected.
func (c *Cart) ActiveWallet(wallets []types.Wallet, selected string) string {
	if c.Empty() {
		return selected
	}
	if c.override != "" {
		return c.override
	}
	return c.AutoWallet(wallets, selected)
}

// Change returns received minus final, rounded, for a cash payment. ok is
// false for cashless payments and while nothing has been received. A
// negative change means the customer has not handed over enough.
func Change(payment string, received, final decimal.Decimal) (change int64, ok bool) {
	if payment != types.PaymentCash || received.IsZero() {
		return 0, false
	}
	return Round(received.Sub(final)), true
}

// Payment describes how a checkout is settled.
type Payment struct {
	Method   string
	Received decimal.Decimal
}

// Checkout turns the cart into sales. A cart yields one sale per line,
// credited to the product's wallet and sharing a checkout id; an empty cart
// yields one sale for the manual amount credited to the active wallet. On
// success the cart is cleared. On error the cart is unchanged.
func (c *Cart) Checkout(pay Payment, wallets []types.Wallet, selected string, now time.Time) ([]types.Sale, error) {
	if !types.ValidPayment(pay.Method) {
		return nil, types.ErrInvalidPayment
	}
	final := Round(c.Final())
	if final <= 0 {
		return nil, types.ErrInvalidAmount
	}

	var received *int64
	if pay.Method == types.PaymentCash && !pay.Received.IsZero() {
		r := Round(pay.Received)
		received = &r
	}
	at := types.TimestampOf(now)

	if c.Empty() {
		sale := types.Sale{
			ID:           generateUUID(),
			At:           at,
			Amount:       final,
			Payment:      pay.Method,
			WalletID:     c.ActiveWallet(wallets, selected),
			CashReceived: received,
		}
		c.Clear()
		return []types.Sale{sale}, nil
	}

	checkoutID := generateUUID()
	sales := make([]types.Sale, 0, len(c.lines))
	for _, l := range c.lines {
		sales = append(sales, types.Sale{
			ID:           generateUUID(),
			At:           at,
			Amount:       l.Amount(),
			Payment:      pay.Method,
			WalletID:     l.Product.WalletID,
			ProductID:    l.Product.ID,
			CashReceived: received,
			CheckoutID:   checkoutID,
		})
	}
	c.Clear()
	return sales, nil
}

// generateUUID generates a new UUID v7 for sale ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
