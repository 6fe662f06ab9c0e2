package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// ActiveEventID addresses the active ledger in operations that otherwise
// take an archive id.
const ActiveEventID = "__active__"

// ArchivedEvent is a closed ledger. Its metadata is frozen; sales and gifts
// stay individually deletable to correct mistakes.
type ArchivedEvent struct {
	ID string `json:"id"`
	EventLedger
}

// AccountDocument is the root persisted document: the active ledger plus the
// append-only archive.
type AccountDocument struct {
	EventLedger
	ArchivedEvents []ArchivedEvent `json:"archivedEvents"`
}

// NewAccount returns an idle account with an empty archive.
func NewAccount(now time.Time) AccountDocument {
	return AccountDocument{
		EventLedger:    NewLedger(now),
		ArchivedEvents: []ArchivedEvent{},
	}
}

// DecodeAccount decodes raw over the defaults of NewAccount, so fields
// missing from older documents keep their default values.
func DecodeAccount(raw json.RawMessage, now time.Time) (AccountDocument, error) {
	doc := NewAccount(now)
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return NewAccount(now), fmt.Errorf("decode account document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// Clone returns a deep copy of the account.
func (a AccountDocument) Clone() AccountDocument {
	c := AccountDocument{
		EventLedger:    a.EventLedger.Clone(),
		ArchivedEvents: make([]ArchivedEvent, len(a.ArchivedEvents)),
	}
	for i, ev := range a.ArchivedEvents {
		c.ArchivedEvents[i] = ArchivedEvent{ID: ev.ID, EventLedger: ev.EventLedger.Clone()}
	}
	return c
}

// WithLedger replaces the active ledger, keeping the archive.
func (a AccountDocument) WithLedger(l EventLedger) AccountDocument {
	next := a.Clone()
	next.EventLedger = l.Clone()
	return next
}

// Archive closes the active ledger. The ledger is copied into a new archive
// entry whose end time is the ledger's endAt or now, and a freshly reset
// ledger dated now is returned with the archive carried forward. Archive is
// valid on an idle ledger too and then records an empty event. It performs no
// persistence.
func (a AccountDocument) Archive(now time.Time) AccountDocument {
	closed := a.EventLedger.Clone()
	if closed.EndAt == nil {
		closed.EndAt = NewTimestamp(now)
	}
	next := a.Clone()
	next.ArchivedEvents = append(next.ArchivedEvents, ArchivedEvent{
		ID:          fmt.Sprintf("event_%d", now.UnixMilli()),
		EventLedger: closed,
	})
	next.EventLedger = NewLedger(now)
	return next
}

// Event returns the event addressed by eventID: the active ledger for
// ActiveEventID, otherwise the archive entry with that id.
func (a AccountDocument) Event(eventID string) (ArchivedEvent, bool) {
	if eventID == ActiveEventID {
		return ArchivedEvent{ID: ActiveEventID, EventLedger: a.EventLedger.Clone()}, true
	}
	for _, ev := range a.ArchivedEvents {
		if ev.ID == eventID {
			return ArchivedEvent{ID: ev.ID, EventLedger: ev.EventLedger.Clone()}, true
		}
	}
	return ArchivedEvent{}, false
}

// DeleteSale removes one sale from the addressed event, preserving the order
// of the remaining sales. Every other event is left untouched.
func (a AccountDocument) DeleteSale(eventID, saleID string) (AccountDocument, error) {
	return a.updateEvent(eventID, func(l *EventLedger) error {
		idx := slices.IndexFunc(l.Sales, func(s Sale) bool { return s.ID == saleID })
		if idx < 0 {
			return fmt.Errorf("sale %q: %w", saleID, ErrNotFound)
		}
		l.Sales = slices.Delete(l.Sales, idx, idx+1)
		return nil
	})
}

// DeleteGift removes one gift from the addressed event.
func (a AccountDocument) DeleteGift(eventID, giftID string) (AccountDocument, error) {
	return a.updateEvent(eventID, func(l *EventLedger) error {
		idx := slices.IndexFunc(l.Gifts, func(g Gift) bool { return g.ID == giftID })
		if idx < 0 {
			return fmt.Errorf("gift %q: %w", giftID, ErrNotFound)
		}
		l.Gifts = slices.Delete(l.Gifts, idx, idx+1)
		return nil
	})
}

// ToggleThanked flips the thanked flag of a gift in the addressed event.
func (a AccountDocument) ToggleThanked(eventID, giftID string) (AccountDocument, error) {
	return a.updateEvent(eventID, func(l *EventLedger) error {
		idx := slices.IndexFunc(l.Gifts, func(g Gift) bool { return g.ID == giftID })
		if idx < 0 {
			return fmt.Errorf("gift %q: %w", giftID, ErrNotFound)
		}
		l.Gifts[idx].Thanked = !l.Gifts[idx].Thanked
		return nil
	})
}

// updateEvent applies fn to a copy of the addressed event. On error the
// original document is returned unchanged.
func (a AccountDocument) updateEvent(eventID string, fn func(*EventLedger) error) (AccountDocument, error) {
	next := a.Clone()
	if eventID == ActiveEventID {
		if err := fn(&next.EventLedger); err != nil {
			return a, err
		}
		return next, nil
	}
	for i := range next.ArchivedEvents {
		if next.ArchivedEvents[i].ID != eventID {
			continue
		}
		if err := fn(&next.ArchivedEvents[i].EventLedger); err != nil {
			return a, err
		}
		return next, nil
	}
	return a, fmt.Errorf("event %q: %w", eventID, ErrNotFound)
}

// normalize fills nil collections after decoding.
func (a *AccountDocument) normalize() {
	a.EventLedger.normalize()
	if a.ArchivedEvents == nil {
		a.ArchivedEvents = []ArchivedEvent{}
	}
	for i := range a.ArchivedEvents {
		a.ArchivedEvents[i].EventLedger.normalize()
	}
}
