package types

import (
	"maps"
	"math"
	"slices"
	"time"
)

// LedgerState is the lifecycle state of the active ledger. There is no
// closed state: closing archives the ledger and resets it to idle.
type LedgerState string

// Ledger states.
const (
	LedgerIdle LedgerState = "idle"
	LedgerOpen LedgerState = "open"
)

// EventLedger is the active sales document of one event.
type EventLedger struct {
	EventName         string           `json:"eventName"`
	EventDate         string           `json:"eventDate"`
	StartAt           *Timestamp       `json:"startAt"`
	EndAt             *Timestamp       `json:"endAt"`
	CashFloatByWallet map[string]int64 `json:"cashFloatByWallet"`
	Sales             []Sale           `json:"sales"`
	Gifts             []Gift           `json:"gifts"`
}

// NewLedger returns a fresh idle ledger dated now.
func NewLedger(now time.Time) EventLedger {
	return EventLedger{
		EventDate:         FormatDate(now),
		CashFloatByWallet: map[string]int64{},
		Sales:             []Sale{},
		Gifts:             []Gift{},
	}
}

// State derives the lifecycle state from startAt and endAt.
func (l EventLedger) State() LedgerState {
	if l.StartAt != nil && l.EndAt == nil {
		return LedgerOpen
	}
	return LedgerIdle
}

// IsOpen reports whether the ledger is accepting sales.
func (l EventLedger) IsOpen() bool {
	return l.State() == LedgerOpen
}

// Clone returns a deep copy so the result shares no slices or maps with l.
func (l EventLedger) Clone() EventLedger {
	c := l
	if l.StartAt != nil {
		v := *l.StartAt
		c.StartAt = &v
	}
	if l.EndAt != nil {
		v := *l.EndAt
		c.EndAt = &v
	}
	c.CashFloatByWallet = maps.Clone(l.CashFloatByWallet)
	if c.CashFloatByWallet == nil {
		c.CashFloatByWallet = map[string]int64{}
	}
	c.Sales = make([]Sale, len(l.Sales))
	for i, s := range l.Sales {
		if s.CashReceived != nil {
			v := *s.CashReceived
			s.CashReceived = &v
		}
		c.Sales[i] = s
	}
	c.Gifts = slices.Clone(l.Gifts)
	if c.Gifts == nil {
		c.Gifts = []Gift{}
	}
	return c
}

// Start opens an idle ledger at now. Starting an open ledger is ignored and
// returns it unchanged.
func (l EventLedger) Start(now time.Time) EventLedger {
	if l.IsOpen() {
		return l
	}
	next := l.Clone()
	next.StartAt = NewTimestamp(now)
	next.EndAt = nil
	return next
}

// WithInfo sets the event name and date.
func (l EventLedger) WithInfo(name, date string) EventLedger {
	next := l.Clone()
	next.EventName = name
	next.EventDate = date
	return next
}

// WithFloat sets the starting cash of a wallet drawer. Negative amounts are
// stored as zero.
func (l EventLedger) WithFloat(walletID string, amount float64) EventLedger {
	next := l.Clone()
	next.CashFloatByWallet[walletID] = int64(math.Max(0, math.Round(amount)))
	return next
}

// Float returns the starting cash of a wallet drawer.
func (l EventLedger) Float(walletID string) int64 {
	return l.CashFloatByWallet[walletID]
}

// WithSales prepends sales, newest first.
func (l EventLedger) WithSales(sales ...Sale) EventLedger {
	next := l.Clone()
	next.Sales = append(slices.Clone(sales), next.Sales...)
	return next
}

// WithGift prepends a gift, newest first.
func (l EventLedger) WithGift(g Gift) EventLedger {
	next := l.Clone()
	next.Gifts = append([]Gift{g}, next.Gifts...)
	return next
}

// normalize replaces nil collections left by decoding with empty ones.
func (l *EventLedger) normalize() {
	if l.CashFloatByWallet == nil {
		l.CashFloatByWallet = map[string]int64{}
	}
	if l.Sales == nil {
		l.Sales = []Sale{}
	}
	if l.Gifts == nil {
		l.Gifts = []Gift{}
	}
}
