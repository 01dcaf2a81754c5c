// Package clearance settles outstanding transactions and opening balances
// with the balances of receipts, payments, notes and journal entries.
package clearance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/metrics"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/transactions"
)

// Options configures a Service.
type Options struct {
	Labels        config.LabelsConfig
	AgingBrackets []config.AgingBracket
}

// Service creates and removes assignments.
type Service struct {
	store        store.Store
	transactions *transactions.Service
	opts         Options
	log          zerolog.Logger
}

// NewService creates a clearance Service. Forex journal entries are posted
// through txs.
func NewService(st store.Store, txs *transactions.Service, opts Options, log zerolog.Logger) *Service {
	if len(opts.AgingBrackets) == 0 {
		opts.AgingBrackets = config.DefaultAgingBrackets()
	}
	return &Service{
		store:        st,
		transactions: txs,
		opts:         opts,
		log:          log.With().Str("component", "clearance").Logger(),
	}
}

// AssignParams describes one assignment.
type AssignParams struct {
	// AssignmentDate defaults to the assigning transaction's date.
	AssignmentDate time.Time
	TransactionID  int64
	Cleared        model.ClearedRef
	Amount         decimal.Decimal
	// ForexAccountID receives the gain or loss when the two parties were
	// booked at different rates.
	ForexAccountID int64
}

// Assign applies part of a transaction's balance to a cleared transaction
// or opening balance.
func (s *Service) Assign(ctx context.Context, p AssignParams) (*model.Assignment, error) {
	var a *model.Assignment
	var forex *forexResult
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		a, forex, err = s.assign(ctx, r, p)
		return err
	})
	if err != nil {
		s.reject(p, err)
		return nil, err
	}
	s.created(a, forex)
	return a, nil
}

func (s *Service) reject(p AssignParams, err error) {
	kind, ok := ifrserr.KindOf(err)
	if !ok {
		metrics.Assignments.WithLabelValues("error").Inc()
		return
	}
	metrics.Assignments.WithLabelValues(string(kind)).Inc()
	s.log.Info().
		Int64("transaction_id", p.TransactionID).
		Str("cleared", p.Cleared.String()).
		Str("amount", p.Amount.String()).
		Str("kind", string(kind)).
		Msg("assignment rejected")
}

func (s *Service) created(a *model.Assignment, forex *forexResult) {
	metrics.Assignments.WithLabelValues("created").Inc()
	if forex == nil {
		return
	}
	metrics.ForexRealizations.WithLabelValues(forex.direction).Inc()
	s.log.Info().
		Int64("assignment_id", a.ID).
		Int64("forex_transaction_id", a.ForexTransactionID).
		Str("direction", forex.direction).
		Str("amount", forex.amount.String()).
		Msg("forex difference realized")
}

func (s *Service) assign(ctx context.Context, r store.Repository, p AssignParams) (*model.Assignment, *forexResult, error) {
	p.Amount = p.Amount.Round(model.AmountScale)
	tx, err := s.loadTransaction(ctx, r, p.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.load(ctx, r, p.Cleared)
	if err != nil {
		return nil, nil, err
	}
	if err := s.check(tx, c, p); err != nil {
		return nil, nil, err
	}

	a := &model.Assignment{
		EntityID:       tx.Record().EntityID,
		AssignmentDate: p.AssignmentDate,
		TransactionID:  tx.Record().ID,
		ClearedID:      p.Cleared.ID,
		ClearedType:    p.Cleared.Type,
		Amount:         p.Amount,
		ForexAccountID: p.ForexAccountID,
	}
	if a.AssignmentDate.IsZero() {
		a.AssignmentDate = tx.Date()
	}
	if err := r.InsertAssignment(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("inserting assignment: %w", err)
	}
	if tx.Rate().Equal(c.Rate()) {
		return a, nil, nil
	}
	forex, err := s.realize(ctx, r, a, tx, c)
	if err != nil {
		return nil, nil, err
	}
	return a, forex, nil
}

func (s *Service) check(tx *Transaction, c Clearable, p AssignParams) error {
	txLabel := s.opts.Labels.TransactionType(tx.Type())
	if !tx.Type().Assignable() {
		return ifrserr.NewUnassignableTransaction(txLabel, s.typeLabels(model.AssignableTypes))
	}
	if !c.Type().Clearable() {
		return ifrserr.NewUnclearableTransaction(s.opts.Labels.TransactionType(c.Type()), s.typeLabels(model.ClearableTypes))
	}
	if p.Amount.IsNegative() {
		return ifrserr.NewNegativeAmount("Assignment")
	}
	if c.Ref() == tx.Ref() {
		return ifrserr.NewSelfClearance()
	}
	if !tx.IsPosted() || !c.IsPosted() {
		return ifrserr.NewUnpostedAssignment()
	}
	if c.Account() != tx.Account() {
		return ifrserr.NewInvalidClearanceAccount()
	}
	if c.Currency() != tx.Currency() {
		return ifrserr.NewInvalidClearanceCurrency()
	}
	if c.IsCredited() == tx.IsCredited() {
		return ifrserr.NewInvalidClearanceEntry(entryLabel(tx.IsCredited()), entryLabel(c.IsCredited()))
	}
	if tx.Balance().LessThan(p.Amount) {
		return ifrserr.NewInsufficientBalance(txLabel, p.Amount, s.clearedLabel(c))
	}
	if Uncleared(c).LessThan(p.Amount) {
		return ifrserr.NewOverClearance(s.clearedLabel(c), p.Amount)
	}
	if !tx.Rate().Equal(c.Rate()) && p.ForexAccountID == 0 {
		return ifrserr.NewMissingForexAccount(tx.Number(), c.Number())
	}
	if tx.ClearedAmount().IsPositive() {
		return ifrserr.NewMixedAssignment("Cleared", "Assigned")
	}
	if ct, ok := c.(*Transaction); ok && ct.AssignedAmount().IsPositive() {
		return ifrserr.NewMixedAssignment("Assigned", "Cleared")
	}
	return nil
}

func (s *Service) typeLabels(types []model.TransactionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = s.opts.Labels.TransactionType(t)
	}
	return out
}

func (s *Service) clearedLabel(c Clearable) string {
	if _, ok := c.(*OpeningBalance); ok {
		return "Opening Balance"
	}
	return s.opts.Labels.TransactionType(c.Type())
}

func entryLabel(credited bool) string {
	if credited {
		return "Credit"
	}
	return "Debit"
}

type forexResult struct {
	direction string
	amount    decimal.Decimal
}

// realize posts the difference between the reporting currency values of
// the assigned amount at the two parties' rates as a journal entry on the
// clearing account against the forex account.
func (s *Service) realize(ctx context.Context, r store.Repository, a *model.Assignment, tx *Transaction, c Clearable) (*forexResult, error) {
	diff := a.Amount.Mul(tx.Rate().Sub(c.Rate())).Round(model.AmountScale)
	if diff.IsZero() {
		return nil, nil
	}
	e, err := r.Entity(ctx, a.EntityID)
	if err != nil {
		return nil, fmt.Errorf("loading entity %d: %w", a.EntityID, err)
	}
	credited := tx.IsCredited()
	if diff.IsPositive() {
		credited = c.IsCredited()
	}

	jn, err := s.transactions.JournalEntry(ctx, transactions.Params{
		EntityID:       a.EntityID,
		AccountID:      tx.Account(),
		CurrencyID:     e.CurrencyID,
		ExchangeRateID: e.BaseRateID,
		Date:           a.AssignmentDate,
		Reference:      tx.Number(),
		Narration:      fmt.Sprintf("Forex difference on %s against %s", tx.Number(), c.Number()),
		Credited:       &credited,
	})
	if err != nil {
		return nil, fmt.Errorf("creating forex journal entry: %w", err)
	}
	item := &model.LineItem{
		EntityID:  a.EntityID,
		AccountID: a.ForexAccountID,
		Amount:    diff.Abs(),
		Quantity:  decimal.NewFromInt(1),
		Narration: "Realized forex difference",
	}
	if err := s.transactions.AddLineItem(ctx, jn, item); err != nil {
		return nil, err
	}
	if _, err := s.transactions.Post(ctx, jn); err != nil {
		return nil, fmt.Errorf("posting forex journal entry: %w", err)
	}

	a.ForexTransactionID = jn.ID
	if err := r.UpdateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("updating assignment %d: %w", a.ID, err)
	}
	direction := "gain"
	if credited {
		direction = "loss"
	}
	return &forexResult{direction: direction, amount: diff.Abs()}, nil
}

// BulkParams describes a bulk assignment.
type BulkParams struct {
	TransactionID int64
	// Date defaults to the assigning transaction's date.
	Date           time.Time
	ForexAccountID int64
}

// BulkAssign spends the balance of a transaction on the outstanding items
// of its account, oldest first, until either runs out.
func (s *Service) BulkAssign(ctx context.Context, p BulkParams) ([]*model.Assignment, error) {
	var out []*model.Assignment
	var realized []*forexResult
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		out, realized = nil, nil
		tx, err := s.loadTransaction(ctx, r, p.TransactionID)
		if err != nil {
			return err
		}
		items, err := s.outstanding(ctx, r, tx.Account(), tx.Currency())
		if err != nil {
			return err
		}
		remaining := tx.Balance()
		for _, c := range items {
			if !remaining.IsPositive() {
				break
			}
			if c.IsCredited() == tx.IsCredited() || c.Ref() == tx.Ref() {
				continue
			}
			amount := decimal.Min(Uncleared(c), remaining)
			a, forex, err := s.assign(ctx, r, AssignParams{
				AssignmentDate: p.Date,
				TransactionID:  tx.Record().ID,
				Cleared:        c.Ref(),
				Amount:         amount,
				ForexAccountID: p.ForexAccountID,
			})
			if err != nil {
				return err
			}
			out = append(out, a)
			realized = append(realized, forex)
			remaining = remaining.Sub(amount)
		}
		return nil
	})
	if err != nil {
		s.reject(AssignParams{TransactionID: p.TransactionID}, err)
		return nil, err
	}
	for i, a := range out {
		s.created(a, realized[i])
	}
	s.log.Debug().
		Int64("transaction_id", p.TransactionID).
		Int("assignments", len(out)).
		Msg("bulk assignment complete")
	return out, nil
}

// Unassign removes an assignment and its forex journal entry.
func (s *Service) Unassign(ctx context.Context, assignmentID int64) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		a, err := r.Assignment(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("loading assignment %d: %w", assignmentID, err)
		}
		if err := r.DeleteAssignment(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting assignment %d: %w", a.ID, err)
		}
		if a.ForexTransactionID == 0 {
			return nil
		}
		return s.transactions.Delete(ctx, a.ForexTransactionID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("assignment_id", assignmentID).Msg("assignment removed")
	return nil
}

// Assignments lists assignments matching f.
func (s *Service) Assignments(ctx context.Context, f store.AssignmentFilter) ([]*model.Assignment, error) {
	var out []*model.Assignment
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		out, err = r.Assignments(ctx, f)
		return err
	})
	return out, err
}

// Transaction returns a transaction as an assignable.
func (s *Service) Transaction(ctx context.Context, transactionID int64) (*Transaction, error) {
	var t *Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		t, err = s.loadTransaction(ctx, r, transactionID)
		return err
	})
	return t, err
}

// Clearable returns the transaction or opening balance ref points at.
func (s *Service) Clearable(ctx context.Context, ref model.ClearedRef) (Clearable, error) {
	var c Clearable
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		c, err = s.load(ctx, r, ref)
		return err
	})
	return c, err
}
