package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Service manages Vat rates.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

// NewService creates a tax Service.
func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log.With().Str("component", "tax").Logger()}
}

// Create validates and stores a Vat. A positive rate needs an account to
// book the tax to; a zero rate is the zero-rated Vat and needs none.
func (s *Service) Create(ctx context.Context, v *model.Vat) error {
	if v.Rate.IsNegative() {
		return ifrserr.NewNegativeAmount("Vat Rate")
	}
	if v.Rate.IsPositive() && v.AccountID == 0 {
		return ifrserr.NewMissingVatAccount(v.Rate)
	}
	var saved model.Vat
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		saved = *v
		if v.AccountID != 0 {
			a, err := r.Account(ctx, v.AccountID)
			if err != nil {
				return fmt.Errorf("loading vat account %d: %w", v.AccountID, err)
			}
			if a.EntityID != v.EntityID {
				return fmt.Errorf("vat account %d belongs to another entity", a.ID)
			}
		}
		if err := r.InsertVat(ctx, &saved); err != nil {
			return fmt.Errorf("inserting vat: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*v = saved
	return nil
}

// ZeroRated returns the entity's zero-rated Vat, creating it on first use.
func (s *Service) ZeroRated(ctx context.Context, entityID int64) (*model.Vat, error) {
	var zero *model.Vat
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		vats, err := r.Vats(ctx, entityID)
		if err != nil {
			return fmt.Errorf("listing vats: %w", err)
		}
		for _, v := range vats {
			if v.Rate.IsZero() {
				zero = v
				return nil
			}
		}
		zero = &model.Vat{EntityID: entityID, Name: "Zero Rated", Code: "Z", Rate: decimal.Zero}
		return r.InsertVat(ctx, zero)
	})
	return zero, err
}

// Delete soft-deletes a Vat no line item uses.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		v, err := r.Vat(ctx, id)
		if err != nil {
			return fmt.Errorf("loading vat %d: %w", id, err)
		}
		items, err := r.LineItems(ctx, store.LineItemFilter{EntityID: v.EntityID, VatID: v.ID})
		if err != nil {
			return fmt.Errorf("listing line items: %w", err)
		}
		if len(items) > 0 {
			return ifrserr.NewHangingTransactions("Vat "+v.Code, len(items))
		}
		now := time.Now().UTC()
		v.DeletedAt = &now
		if err := r.UpdateVat(ctx, v); err != nil {
			return fmt.Errorf("deleting vat: %w", err)
		}
		return entity.Recycle(ctx, r, v.EntityID, "Vat", v.ID, now)
	})
}

// Charge returns the tax on amount at rate percent.
func Charge(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Charges returns the tax of each rate on amount. Compound taxes are charged
// on amount plus every tax before them.
func Charges(amount decimal.Decimal, rates []decimal.Decimal, compound bool) []decimal.Decimal {
	out := make([]decimal.Decimal, len(rates))
	base := amount
	for i, rate := range rates {
		out[i] = Charge(base, rate)
		if compound {
			base = base.Add(out[i])
		}
	}
	return out
}
