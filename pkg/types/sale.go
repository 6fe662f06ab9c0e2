package types

// Payment methods.
const (
	PaymentCash     = "cash"
	PaymentCashless = "cashless"
)

// ValidPayment reports whether p is a known payment method.
func ValidPayment(p string) bool {
	return p == PaymentCash || p == PaymentCashless
}

// Sale is one ledger line. Sales are never edited in place; a mistaken sale
// is deleted and recorded again.
type Sale struct {
	ID           string    `json:"id"`
	At           Timestamp `json:"at"`
	Amount       int64     `json:"amount"`
	Payment      string    `json:"payment"`
	WalletID     string    `json:"walletId"`
	ProductID    string    `json:"productId,omitempty"`
	CashReceived *int64    `json:"cashReceived,omitempty"`

	// CheckoutID groups the sales recorded by one cart checkout.
	CheckoutID string `json:"checkoutId,omitempty"`
}

// IsCash reports whether the sale was paid in cash.
func (s Sale) IsCash() bool {
	return s.Payment == PaymentCash
}
