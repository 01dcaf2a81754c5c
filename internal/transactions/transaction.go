package transactions

import (
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Transaction is a transaction header with its line items. Line items added
// or removed are buffered until the next Save.
type Transaction struct {
	model.Transaction

	items   []*model.LineItem
	pending []*model.LineItem
	removed []int64
	posted  bool
}

// IsPosted reports whether the transaction has ledger rows.
func (t *Transaction) IsPosted() bool { return t.posted }

// IsCredited reports whether the main account is credited.
func (t *Transaction) IsCredited() bool { return t.Credited }

// LineItems returns saved and pending line items, in the order they were
// added.
func (t *Transaction) LineItems() []*model.LineItem {
	out := make([]*model.LineItem, 0, len(t.items)+len(t.pending))
	out = append(out, t.items...)
	return append(out, t.pending...)
}

// Pending returns line items waiting for the next Save.
func (t *Transaction) Pending() []*model.LineItem { return t.pending }

func (t *Transaction) has(item *model.LineItem) bool {
	for _, l := range t.LineItems() {
		if l == item || (item.ID != 0 && l.ID == item.ID) {
			return true
		}
	}
	return false
}

func (t *Transaction) drop(item *model.LineItem) {
	match := func(l *model.LineItem) bool { return l == item || (item.ID != 0 && l.ID == item.ID) }
	keep := t.items[:0]
	for _, l := range t.items {
		if match(l) {
			t.removed = append(t.removed, l.ID)
			continue
		}
		keep = append(keep, l)
	}
	t.items = keep

	pending := t.pending[:0]
	for _, l := range t.pending {
		if !match(l) {
			pending = append(pending, l)
		}
	}
	t.pending = pending
}
