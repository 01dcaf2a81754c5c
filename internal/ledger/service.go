// Package ledger turns transactions into hash-chained double-entry rows and
// answers balance and integrity questions about them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/metrics"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/tax"
)

// Service posts transactions to the ledger.
type Service struct {
	store  store.Store
	hasher *Hasher
	log    zerolog.Logger
}

// NewService creates a ledger Service.
func NewService(st store.Store, hasher *Hasher, log zerolog.Logger) *Service {
	return &Service{store: st, hasher: hasher, log: log.With().Str("component", "ledger").Logger()}
}

// Hasher returns the row hasher.
func (s *Service) Hasher() *Hasher { return s.hasher }

// Post replaces the ledger rows of a transaction with freshly built ones.
// Rows are appended to the entity's hash chain under the entity lock.
func (s *Service) Post(ctx context.Context, transactionID int64) ([]*model.Ledger, error) {
	start := time.Now()
	var rows []*model.Ledger
	var t *model.Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		t, err = r.Transaction(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("loading transaction %d: %w", transactionID, err)
		}
		items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: t.ID})
		if err != nil {
			return fmt.Errorf("loading line items: %w", err)
		}
		if len(items) == 0 {
			return ifrserr.NewMissingLineItem(t.TransactionNo)
		}
		rate, err := r.ExchangeRate(ctx, t.ExchangeRateID)
		if err != nil {
			return fmt.Errorf("loading exchange rate %d: %w", t.ExchangeRateID, err)
		}

		vats := make(map[int64]*model.Vat)
		accounts := accountSet{t.AccountID: true}
		for _, item := range items {
			accounts[item.AccountID] = true
			for _, id := range item.VatIDs() {
				if vats[id] != nil {
					continue
				}
				v, err := r.Vat(ctx, id)
				if err != nil {
					return fmt.Errorf("loading vat %d: %w", id, err)
				}
				vats[v.ID] = v
				if v.AccountID != 0 {
					accounts[v.AccountID] = true
				}
			}
		}
		for id := range accounts {
			if _, err := r.Account(ctx, id); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("loading account %d: %w", id, err)
				}
				accounts[id] = false
			}
		}

		rows, err = BuildRows(t, items, vats, rate.Rate)
		if err != nil {
			return err
		}
		if verrs := ValidateRows(rows, accounts); len(verrs) > 0 {
			msgs := make([]string, len(verrs))
			for i, ve := range verrs {
				msgs[i] = ve.Error()
			}
			return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
		}

		if err := r.DeleteLedgers(ctx, t.ID); err != nil {
			return fmt.Errorf("deleting previous rows: %w", err)
		}
		return s.append(ctx, r, t.EntityID, rows)
	})
	if err != nil {
		return nil, err
	}

	metrics.PostingDuration.Observe(time.Since(start).Seconds())
	metrics.LedgerRowsWritten.Add(float64(len(rows)))
	metrics.TransactionsPosted.WithLabelValues(string(t.TransactionType)).Inc()
	s.log.Debug().
		Int64("transaction_id", t.ID).
		Str("transaction_no", t.TransactionNo).
		Int("rows", len(rows)).
		Msg("transaction posted")
	return rows, nil
}

// append seals rows onto the end of the entity's chain and inserts them.
func (s *Service) append(ctx context.Context, r store.Repository, entityID int64, rows []*model.Ledger) error {
	if err := r.LockEntity(ctx, entityID); err != nil {
		return fmt.Errorf("locking entity %d: %w", entityID, err)
	}
	prev := ""
	last, err := r.LastLedger(ctx, entityID)
	switch {
	case err == nil:
		prev = last.Hash
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("loading chain head: %w", err)
	}

	for _, row := range rows {
		id, err := r.NextLedgerID(ctx)
		if err != nil {
			return fmt.Errorf("reserving ledger id: %w", err)
		}
		row.ID = id
		s.hasher.Seal(row, prev)
		if err := r.InsertLedger(ctx, row); err != nil {
			return fmt.Errorf("inserting ledger row: %w", err)
		}
		prev = row.Hash
	}
	return nil
}

// BuildRows returns the ledger rows of a transaction: one mirrored pair per
// line item, and one more pair per positive-rate Vat the line item applies.
// Amounts are translated to the reporting currency at rate and rounded to
// the ledger scale before they are sealed.
func BuildRows(t *model.Transaction, items []*model.LineItem, vats map[int64]*model.Vat, rate decimal.Decimal) ([]*model.Ledger, error) {
	side := model.Debit
	if t.Credited {
		side = model.Credit
	}

	rows := make([]*model.Ledger, 0, len(items)*2)
	pair := func(item *model.LineItem, vatID, folio int64, amount decimal.Decimal) {
		post := &model.Ledger{
			EntityID:       t.EntityID,
			TransactionID:  t.ID,
			LineItemID:     item.ID,
			VatID:          vatID,
			CurrencyID:     t.CurrencyID,
			PostingDate:    t.TransactionDate,
			Amount:         amount,
			PostAccountID:  t.AccountID,
			FolioAccountID: folio,
			EntryType:      side,
		}
		mirror := *post
		mirror.PostAccountID, mirror.FolioAccountID = folio, t.AccountID
		mirror.EntryType = side.Opposite()
		rows = append(rows, post, &mirror)
	}

	for _, item := range items {
		if item.Amount.IsNegative() {
			return nil, ifrserr.NewNegativeAmount("LineItem")
		}
		pair(item, item.VatID, item.AccountID, item.Total().Mul(rate).Round(model.LedgerScale))

		var applied []*model.Vat
		var rates []decimal.Decimal
		for _, id := range item.VatIDs() {
			if v := vats[id]; v != nil {
				applied = append(applied, v)
				rates = append(rates, v.Rate)
			}
		}
		for i, charge := range tax.Charges(item.Total(), rates, item.CompoundVat) {
			v := applied[i]
			if !v.Rate.IsPositive() {
				continue
			}
			if v.AccountID == 0 {
				return nil, ifrserr.NewMissingVatAccount(v.Rate)
			}
			pair(item, v.ID, v.AccountID, charge.Mul(rate).Round(model.LedgerScale))
		}
	}
	return rows, nil
}

// Rows returns the ledger rows matching f in id order.
func (s *Service) Rows(ctx context.Context, f store.LedgerFilter) ([]*model.Ledger, error) {
	var rows []*model.Ledger
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		rows, err = r.Ledgers(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing ledger rows: %w", err)
	}
	return rows, nil
}

// Balance returns debits minus credits posted to an account between from
// and to inclusive, in the reporting currency. A zero currencyID sums all
// currencies; zero dates leave that end open.
func (s *Service) Balance(ctx context.Context, accountID, currencyID int64, from, to time.Time) (decimal.Decimal, error) {
	rows, err := s.Rows(ctx, store.LedgerFilter{PostAccountID: accountID, CurrencyID: currencyID, From: from, To: to})
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(rows), nil
}

// Sum returns debits minus credits over rows.
func Sum(rows []*model.Ledger) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.EntryType == model.Debit {
			total = total.Add(row.Amount)
		} else {
			total = total.Sub(row.Amount)
		}
	}
	return total
}

// HasIntegrity reports whether every row of a transaction still matches its
// stored hash.
func (s *Service) HasIntegrity(ctx context.Context, transactionID int64) (bool, error) {
	rows, err := s.Rows(ctx, store.LedgerFilter{TransactionID: transactionID})
	if err != nil {
		return false, err
	}
	ok := true
	for _, row := range rows {
		if !s.hasher.Verify(row) {
			metrics.IntegrityFailures.Inc()
			s.log.Warn().Int64("ledger_id", row.ID).Int64("transaction_id", transactionID).Msg("ledger row failed hash verification")
			ok = false
		}
	}
	return ok, nil
}

// VerifyChain checks every row of an entity's chain.
func (s *Service) VerifyChain(ctx context.Context, entityID int64) ([]Break, error) {
	rows, err := s.Rows(ctx, store.LedgerFilter{EntityID: entityID})
	if err != nil {
		return nil, err
	}
	breaks := VerifyRows(rows, s.hasher)
	if len(breaks) > 0 {
		metrics.IntegrityFailures.Add(float64(len(breaks)))
		s.log.Warn().Int64("entity_id", entityID).Int("breaks", len(breaks)).Msg("ledger chain verification failed")
	}
	return breaks, nil
}

// Break is a row that failed chain verification.
type Break struct {
	LedgerID int64
	Reason   string
}

func (b Break) String() string {
	return fmt.Sprintf("ledger %d: %s", b.LedgerID, b.Reason)
}

// VerifyRows checks rows given in id order. Each row must match its own
// digest and chain to the row before it. A row may instead chain to a hash
// no longer present, which happens when its predecessor was removed by a
// re-post or a deletion.
func VerifyRows(rows []*model.Ledger, h *Hasher) []Break {
	var breaks []Break
	seen := make(map[string]int64, len(rows))
	for i, row := range rows {
		if !h.Verify(row) {
			breaks = append(breaks, Break{LedgerID: row.ID, Reason: "hash does not match row"})
		}
		if i > 0 && row.PrevHash != rows[i-1].Hash {
			switch id, ok := seen[row.PrevHash]; {
			case row.PrevHash == "":
				breaks = append(breaks, Break{LedgerID: row.ID, Reason: "row restarts the chain"})
			case ok:
				breaks = append(breaks, Break{LedgerID: row.ID, Reason: fmt.Sprintf("chains to row %d instead of row %d", id, rows[i-1].ID)})
			}
		}
		seen[row.Hash] = row.ID
	}
	return breaks
}

type accountSet map[int64]bool

func (a accountSet) Exists(id int64) bool { return a[id] }
