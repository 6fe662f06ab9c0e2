package types

import "strings"

// Gift records an in-kind donation received during an event. Gifts have no
// monetary effect on the ledger.
type Gift struct {
	ID       string    `json:"id"`
	At       Timestamp `json:"at"`
	FromName string    `json:"fromName"`
	Content  string    `json:"content"`
	ImageRef string    `json:"imageRef,omitempty"`
	Thanked  bool      `json:"thanked"`
}

// Validate requires a sender or a content.
func (g Gift) Validate() error {
	if strings.TrimSpace(g.FromName) == "" && strings.TrimSpace(g.Content) == "" {
		return ErrInvalidGift
	}
	return nil
}
