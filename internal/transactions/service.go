// Package transactions implements the transaction state machine: drafts
// collect line items, saving numbers and persists them, posting writes the
// ledger rows.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/id"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/tax"
)

// Options configures a Service.
type Options struct {
	// SingleCurrency account types only transact in their own currency.
	SingleCurrency []model.AccountType
	Labels         config.LabelsConfig
}

// Service provides transaction operations.
type Service struct {
	store      store.Store
	ledger     *ledger.Service
	opts       Options
	validators map[model.TransactionType][]Validator
	log        zerolog.Logger
}

// NewService creates a transactions Service.
func NewService(st store.Store, led *ledger.Service, opts Options, log zerolog.Logger) *Service {
	return &Service{
		store:      st,
		ledger:     led,
		opts:       opts,
		validators: make(map[model.TransactionType][]Validator),
		log:        log.With().Str("component", "transactions").Logger(),
	}
}

// RegisterValidator adds a check run when transactions of type tt are posted.
func (s *Service) RegisterValidator(tt model.TransactionType, v Validator) {
	s.validators[tt] = append(s.validators[tt], v)
}

// Params holds the header fields of a new transaction.
type Params struct {
	EntityID  int64
	AccountID int64
	// CurrencyID defaults to the main account's currency, then the
	// entity's reporting currency.
	CurrencyID int64
	// ExchangeRateID defaults to the currency's rate on Date.
	ExchangeRateID int64
	Date           time.Time
	Reference      string
	Narration      string
	// Credited overrides the default side of journal entries.
	Credited *bool
}

// New returns an unsaved transaction of type tt.
func (s *Service) New(ctx context.Context, tt model.TransactionType, p Params) (*Transaction, error) {
	rule, ok := Rules[tt]
	if !ok {
		return nil, fmt.Errorf("unknown transaction type %q", tt)
	}
	t := &Transaction{Transaction: model.Transaction{
		EntityID:        p.EntityID,
		AccountID:       p.AccountID,
		CurrencyID:      p.CurrencyID,
		ExchangeRateID:  p.ExchangeRateID,
		TransactionDate: p.Date,
		TransactionType: tt,
		Reference:       p.Reference,
		Narration:       p.Narration,
		Credited:        rule.Credited,
	}}
	if tt == model.JournalEntry && p.Credited != nil {
		t.Credited = *p.Credited
	}

	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		e, err := r.Entity(ctx, p.EntityID)
		if err != nil {
			return fmt.Errorf("loading entity %d: %w", p.EntityID, err)
		}
		a, err := r.Account(ctx, p.AccountID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", p.AccountID, err)
		}
		if t.CurrencyID == 0 {
			t.CurrencyID = a.CurrencyID
		}
		if t.CurrencyID == 0 {
			t.CurrencyID = e.CurrencyID
		}
		if t.ExchangeRateID == 0 {
			x, err := entity.RateAt(ctx, r, e.ID, t.CurrencyID, t.TransactionDate)
			if err != nil {
				return err
			}
			t.ExchangeRateID = x.ID
			return nil
		}
		x, err := r.ExchangeRate(ctx, t.ExchangeRateID)
		if err != nil {
			return fmt.Errorf("loading exchange rate %d: %w", t.ExchangeRateID, err)
		}
		if x.CurrencyID != t.CurrencyID {
			return fmt.Errorf("exchange rate %d is not for currency %d", x.ID, t.CurrencyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CashSale returns a new cash sale: a bank account debited against revenue.
func (s *Service) CashSale(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.CashSale, p)
}

// ClientInvoice returns a new client invoice.
func (s *Service) ClientInvoice(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.ClientInvoice, p)
}

// CreditNote returns a new credit note.
func (s *Service) CreditNote(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.CreditNote, p)
}

// ClientReceipt returns a new client receipt.
func (s *Service) ClientReceipt(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.ClientReceipt, p)
}

// CashPurchase returns a new cash purchase.
func (s *Service) CashPurchase(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.CashPurchase, p)
}

// SupplierBill returns a new supplier bill.
func (s *Service) SupplierBill(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.SupplierBill, p)
}

// DebitNote returns a new debit note.
func (s *Service) DebitNote(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.DebitNote, p)
}

// SupplierPayment returns a new supplier payment.
func (s *Service) SupplierPayment(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.SupplierPayment, p)
}

// ContraEntry returns a new transfer between bank accounts.
func (s *Service) ContraEntry(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.ContraEntry, p)
}

// JournalEntry returns a new journal entry.
func (s *Service) JournalEntry(ctx context.Context, p Params) (*Transaction, error) {
	return s.New(ctx, model.JournalEntry, p)
}

// Load returns a saved transaction with its line items.
func (s *Service) Load(ctx context.Context, transactionID int64) (*Transaction, error) {
	var t *Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		t, err = load(ctx, r, transactionID)
		return err
	})
	return t, err
}

func load(ctx context.Context, r store.Repository, transactionID int64) (*Transaction, error) {
	tx, err := r.Transaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %d: %w", transactionID, err)
	}
	items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
	if err != nil {
		return nil, fmt.Errorf("loading line items: %w", err)
	}
	posted, err := hasRows(ctx, r, store.LedgerFilter{TransactionID: tx.ID})
	if err != nil {
		return nil, err
	}
	return &Transaction{Transaction: *tx, items: items, posted: posted}, nil
}

func hasRows(ctx context.Context, r store.Repository, f store.LedgerFilter) (bool, error) {
	rows, err := r.Ledgers(ctx, f)
	if err != nil {
		return false, fmt.Errorf("loading ledger rows: %w", err)
	}
	return len(rows) > 0, nil
}

// AddLineItem attaches item to a draft transaction. The item is persisted
// on the next Save or Post. Adding an item twice is a no-op.
func (s *Service) AddLineItem(ctx context.Context, t *Transaction, item *model.LineItem) error {
	if t.posted {
		return ifrserr.NewPostedTransaction("add a LineItem to")
	}
	if item.Amount.IsNegative() {
		return ifrserr.NewNegativeAmount("LineItem")
	}
	if item.AccountID == t.AccountID {
		return ifrserr.NewRedundantTransaction()
	}
	if t.has(item) {
		return nil
	}
	if i := slices.Index(t.removed, item.ID); item.ID != 0 && i >= 0 {
		t.removed = slices.Delete(t.removed, i, i+1)
		t.items = append(t.items, item)
		return nil
	}
	if item.ID != 0 {
		posted, err := s.lineItemPosted(ctx, item.ID)
		if err != nil {
			return err
		}
		if posted {
			return ifrserr.NewPostedTransaction("move a LineItem of")
		}
	}
	t.pending = append(t.pending, item)
	return nil
}

// RemoveLineItem detaches item from a draft transaction on the next Save.
func (s *Service) RemoveLineItem(ctx context.Context, t *Transaction, item *model.LineItem) error {
	if t.posted {
		return ifrserr.NewPostedTransaction("remove a LineItem from")
	}
	if item.ID != 0 {
		posted, err := s.lineItemPosted(ctx, item.ID)
		if err != nil {
			return err
		}
		if posted {
			return ifrserr.NewPostedTransaction("remove a LineItem from")
		}
	}
	t.drop(item)
	return nil
}

func (s *Service) lineItemPosted(ctx context.Context, lineItemID int64) (bool, error) {
	var posted bool
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		posted, err = hasRows(ctx, r, store.LedgerFilter{LineItemID: lineItemID})
		return err
	})
	return posted, err
}

// SaveLineItem persists a line item on its own. Posted line items cannot be
// changed.
func (s *Service) SaveLineItem(ctx context.Context, item *model.LineItem) error {
	if item.Amount.IsNegative() {
		return ifrserr.NewNegativeAmount("LineItem")
	}
	var saved model.LineItem
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		saved = *item
		return saveLineItem(ctx, r, &saved)
	})
	if err != nil {
		return err
	}
	*item = saved
	return nil
}

func saveLineItem(ctx context.Context, r store.Repository, item *model.LineItem) error {
	if item.Amount.IsNegative() {
		return ifrserr.NewNegativeAmount("LineItem")
	}
	item.Amount = item.Amount.Round(model.AmountScale)
	item.Quantity = item.Quantity.Round(model.AmountScale)
	if item.ID == 0 {
		if err := r.InsertLineItem(ctx, item); err != nil {
			return fmt.Errorf("inserting line item: %w", err)
		}
		return nil
	}

	stored, err := r.LineItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("loading line item %d: %w", item.ID, err)
	}
	if lineItemChanged(stored, item) {
		posted, err := hasRows(ctx, r, store.LedgerFilter{LineItemID: item.ID})
		if err != nil {
			return err
		}
		if posted {
			return ifrserr.NewPostedTransaction("modify a LineItem of")
		}
	}
	if err := r.UpdateLineItem(ctx, item); err != nil {
		return fmt.Errorf("updating line item %d: %w", item.ID, err)
	}
	return nil
}

func lineItemChanged(a, b *model.LineItem) bool {
	return a.TransactionID != b.TransactionID ||
		a.AccountID != b.AccountID ||
		a.VatID != b.VatID ||
		!slices.Equal(a.ExtraVatIDs, b.ExtraVatIDs) ||
		a.CompoundVat != b.CompoundVat ||
		a.Narration != b.Narration ||
		!a.Amount.Equal(b.Amount) ||
		!a.Quantity.Equal(b.Quantity)
}

// clone copies t deeply enough that a failed unit of work leaves t as it
// was. Units clone on every attempt, since a retried attempt must not see
// the ids a rolled back one assigned.
func (t *Transaction) clone() *Transaction {
	work := &Transaction{Transaction: t.Transaction, posted: t.posted}
	work.items = slices.Clone(t.items)
	work.removed = slices.Clone(t.removed)
	for _, item := range t.pending {
		c := *item
		work.pending = append(work.pending, &c)
	}
	return work
}

// commit applies the result of a successful unit of work on work to t.
func (t *Transaction) commit(work *Transaction) {
	t.Transaction = work.Transaction
	for i, item := range t.pending {
		*item = *work.pending[i]
	}
	t.items = append(t.items, t.pending...)
	t.pending = nil
	t.removed = nil
	t.posted = work.posted
}

// Save persists the transaction header, numbering it on first save, and
// flushes pending line item changes.
func (s *Service) Save(ctx context.Context, t *Transaction) error {
	var work *Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		work = t.clone()
		return s.save(ctx, r, work)
	})
	if err != nil {
		return err
	}
	t.commit(work)
	return nil
}

func (s *Service) save(ctx context.Context, r store.Repository, t *Transaction) error {
	if !t.TransactionType.Valid() {
		return fmt.Errorf("unknown transaction type %q", t.TransactionType)
	}
	e, err := r.Entity(ctx, t.EntityID)
	if err != nil {
		return fmt.Errorf("loading entity %d: %w", t.EntityID, err)
	}
	period, err := entity.PeriodForYear(ctx, r, e, e.ReportingYear(t.TransactionDate))
	if err != nil {
		return err
	}
	if err := entity.CheckPeriod(period, t.TransactionType); err != nil {
		return err
	}
	if err := s.checkCurrency(ctx, r, t); err != nil {
		return err
	}

	if t.ID != 0 {
		stored, err := r.Transaction(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("loading transaction %d: %w", t.ID, err)
		}
		posted, err := hasRows(ctx, r, store.LedgerFilter{TransactionID: t.ID})
		if err != nil {
			return err
		}
		if posted && headerChanged(stored, &t.Transaction) {
			return ifrserr.NewPostedTransaction("modify")
		}
	}

	if t.TransactionNo == "" {
		seq, err := r.NextSequence(ctx, id.TransactionSequence(e.ID, period.ID, string(t.TransactionType)))
		if err != nil {
			return fmt.Errorf("numbering transaction: %w", err)
		}
		t.TransactionNo = id.FormatTransactionNo(string(t.TransactionType), period.PeriodCount, seq)
	}

	if t.ID == 0 {
		if err := r.InsertTransaction(ctx, &t.Transaction); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	} else if err := r.UpdateTransaction(ctx, &t.Transaction); err != nil {
		return fmt.Errorf("updating transaction %d: %w", t.ID, err)
	}

	for _, lid := range t.removed {
		if err := r.DeleteLineItem(ctx, lid); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("removing line item %d: %w", lid, err)
		}
	}
	for _, item := range t.pending {
		item.EntityID = t.EntityID
		item.TransactionID = t.ID
		if err := saveLineItem(ctx, r, item); err != nil {
			return err
		}
	}
	return nil
}

func headerChanged(a, b *model.Transaction) bool {
	return a.AccountID != b.AccountID ||
		a.CurrencyID != b.CurrencyID ||
		a.ExchangeRateID != b.ExchangeRateID ||
		a.TransactionType != b.TransactionType ||
		a.Credited != b.Credited ||
		!a.TransactionDate.Equal(b.TransactionDate)
}

// checkCurrency rejects transactions in a currency other than that of a
// single-currency account they touch.
func (s *Service) checkCurrency(ctx context.Context, r store.Repository, t *Transaction) error {
	ids := []int64{t.AccountID}
	for _, item := range t.LineItems() {
		ids = append(ids, item.AccountID)
	}
	for _, aid := range ids {
		a, err := r.Account(ctx, aid)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", aid, err)
		}
		if s.singleCurrency(a) && a.CurrencyID != t.CurrencyID {
			return ifrserr.NewInvalidCurrency("Transaction", a.Name)
		}
	}
	return nil
}

func (s *Service) singleCurrency(a *model.Account) bool {
	return a.CurrencyID != 0 && slices.Contains(s.opts.SingleCurrency, a.AccountType)
}

// Post saves the transaction and writes its ledger rows. Posting an already
// posted transaction rewrites its rows.
func (s *Service) Post(ctx context.Context, t *Transaction) ([]*model.Ledger, error) {
	if len(t.LineItems()) == 0 {
		return nil, ifrserr.NewMissingLineItem(t.TransactionNo)
	}
	var work *Transaction
	var rows []*model.Ledger
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		work = t.clone()
		if err := s.save(ctx, r, work); err != nil {
			return err
		}
		if err := s.checkRules(ctx, r, work); err != nil {
			return err
		}
		for _, v := range s.validators[work.TransactionType] {
			if err := v(ctx, r, work); err != nil {
				return err
			}
		}
		var err error
		rows, err = s.ledger.Post(ctx, work.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	work.posted = true
	t.commit(work)
	s.log.Info().
		Int64("transaction_id", t.ID).
		Str("transaction_no", t.TransactionNo).
		Str("type", string(t.TransactionType)).
		Msg("transaction posted")
	return rows, nil
}

func (s *Service) checkRules(ctx context.Context, r store.Repository, t *Transaction) error {
	rule := Rules[t.TransactionType]
	label := s.opts.Labels.TransactionType(t.TransactionType)

	main, err := r.Account(ctx, t.AccountID)
	if err != nil {
		return fmt.Errorf("loading account %d: %w", t.AccountID, err)
	}
	if !allows(rule.MainAccountTypes, main.AccountType) {
		return ifrserr.NewMainAccount(label, s.accountLabels(rule.MainAccountTypes))
	}
	for _, item := range t.LineItems() {
		if item.AccountID == t.AccountID {
			return ifrserr.NewRedundantTransaction()
		}
		a, err := r.Account(ctx, item.AccountID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", item.AccountID, err)
		}
		if !allows(rule.LineItemAccountTypes, a.AccountType) {
			return ifrserr.NewLineItemAccount(label, s.accountLabels(rule.LineItemAccountTypes))
		}
	}
	return nil
}

func (s *Service) accountLabels(types []model.AccountType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = s.opts.Labels.AccountType(t)
	}
	return out
}

// Amount returns the transaction total in its own currency. Posted
// transactions total their debit rows translated back at the transaction
// rate; drafts total their line items with tax.
func (s *Service) Amount(ctx context.Context, t *Transaction) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		total, err = amount(ctx, r, t)
		return err
	})
	return total, err
}

func amount(ctx context.Context, r store.Repository, t *Transaction) (decimal.Decimal, error) {
	if t.ID != 0 {
		rows, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: t.ID})
		if err != nil {
			return decimal.Zero, fmt.Errorf("loading ledger rows: %w", err)
		}
		if len(rows) > 0 {
			x, err := r.ExchangeRate(ctx, t.ExchangeRateID)
			if err != nil {
				return decimal.Zero, fmt.Errorf("loading exchange rate %d: %w", t.ExchangeRateID, err)
			}
			debits := decimal.Zero
			for _, row := range rows {
				if row.EntryType == model.Debit {
					debits = debits.Add(row.Amount)
				}
			}
			return debits.Div(x.Rate).Round(model.AmountScale), nil
		}
	}

	total := decimal.Zero
	for _, item := range t.LineItems() {
		total = total.Add(item.Total())
		var rates []decimal.Decimal
		for _, id := range item.VatIDs() {
			v, err := r.Vat(ctx, id)
			if err != nil {
				return decimal.Zero, fmt.Errorf("loading vat %d: %w", id, err)
			}
			rates = append(rates, v.Rate)
		}
		for _, charge := range tax.Charges(item.Total(), rates, item.CompoundVat) {
			total = total.Add(charge)
		}
	}
	return total.Round(model.AmountScale), nil
}

// HasIntegrity reports whether the transaction's ledger rows are untouched.
func (s *Service) HasIntegrity(ctx context.Context, t *Transaction) (bool, error) {
	return s.ledger.HasIntegrity(ctx, t.ID)
}

// Delete removes a transaction together with its line items, ledger rows
// and the assignments clearing it. Transactions that clear others cannot be
// deleted.
func (s *Service) Delete(ctx context.Context, transactionID int64) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		forex, err := r.Assignments(ctx, store.AssignmentFilter{ForexTransactionID: transactionID})
		if err != nil {
			return fmt.Errorf("loading assignments: %w", err)
		}
		if len(forex) > 0 {
			return ifrserr.NewHangingTransactions("Forex Journal Entry", len(forex))
		}
		return s.delete(ctx, r, transactionID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("transaction_id", transactionID).Msg("transaction deleted")
	return nil
}

func (s *Service) delete(ctx context.Context, r store.Repository, transactionID int64) error {
	tx, err := r.Transaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("loading transaction %d: %w", transactionID, err)
	}
	e, err := r.Entity(ctx, tx.EntityID)
	if err != nil {
		return fmt.Errorf("loading entity %d: %w", tx.EntityID, err)
	}
	period, err := entity.PeriodForYear(ctx, r, e, e.ReportingYear(tx.TransactionDate))
	if err != nil {
		return err
	}
	if err := entity.CheckPeriod(period, tx.TransactionType); err != nil {
		return err
	}

	assigned, err := r.Assignments(ctx, store.AssignmentFilter{TransactionID: tx.ID})
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	if len(assigned) > 0 {
		return ifrserr.NewHangingClearances(s.opts.Labels.TransactionType(tx.TransactionType), len(assigned))
	}

	ref := model.TransactionRef(tx.ID)
	clearances, err := r.Assignments(ctx, store.AssignmentFilter{Cleared: &ref})
	if err != nil {
		return fmt.Errorf("loading clearances: %w", err)
	}
	for _, a := range clearances {
		if err := r.DeleteAssignment(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting assignment %d: %w", a.ID, err)
		}
		if a.ForexTransactionID != 0 {
			if err := s.delete(ctx, r, a.ForexTransactionID); err != nil {
				return err
			}
		}
	}

	if err := r.DeleteLedgers(ctx, tx.ID); err != nil {
		return fmt.Errorf("deleting ledger rows: %w", err)
	}
	items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
	if err != nil {
		return fmt.Errorf("loading line items: %w", err)
	}
	for _, item := range items {
		if err := r.DeleteLineItem(ctx, item.ID); err != nil {
			return fmt.Errorf("deleting line item %d: %w", item.ID, err)
		}
	}
	if err := r.DeleteTransaction(ctx, tx.ID); err != nil {
		return fmt.Errorf("deleting transaction %d: %w", tx.ID, err)
	}
	return entity.Recycle(ctx, r, tx.EntityID, "Transaction", tx.ID, time.Now().UTC())
}
