package accounts

import (
	"context"
	"fmt"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/id"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// Import creates the accounts of a chart for an entity in one unit of work.
// Missing categories are created; currencies must already exist. Rows
// without a code are allocated one.
func (s *Service) Import(ctx context.Context, entityID int64, rows []ChartRow) ([]*model.Account, error) {
	var out []*model.Account
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		out = nil
		categories, err := s.categoriesByName(ctx, r, entityID)
		if err != nil {
			return err
		}
		currencies, err := currenciesByCode(ctx, r, entityID)
		if err != nil {
			return err
		}

		for i, row := range rows {
			a := &model.Account{
				EntityID:    entityID,
				Name:        row.Name,
				AccountType: row.Type,
				Code:        row.Code,
				Description: row.Description,
			}
			if !a.AccountType.Valid() {
				return fmt.Errorf("row %d: unknown account type %q", i+1, row.Type)
			}
			if err := s.validate.Struct(a); err != nil {
				return fmt.Errorf("row %d: invalid account: %w", i+1, err)
			}
			if row.Currency != "" {
				c, ok := currencies[row.Currency]
				if !ok {
					return fmt.Errorf("row %d: unknown currency %q", i+1, row.Currency)
				}
				a.CurrencyID = c.ID
			}
			if row.Category != "" {
				c, ok := categories[row.Category]
				if !ok {
					c = &model.Category{EntityID: entityID, Name: row.Category, CategoryType: row.Type}
					if err := r.InsertCategory(ctx, c); err != nil {
						return fmt.Errorf("row %d: inserting category: %w", i+1, err)
					}
					categories[c.Name] = c
				}
				a.CategoryID = c.ID
			}
			if a.Code != 0 {
				if err := s.reserveCode(ctx, r, a); err != nil {
					return err
				}
			}
			if err := s.create(ctx, r, a); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("entity_id", entityID).Int("accounts", len(out)).Msg("chart imported")
	return out, nil
}

// reserveCode advances the code sequence of a's type past a.Code so later
// allocations do not collide with it.
func (s *Service) reserveCode(ctx context.Context, r store.Repository, a *model.Account) error {
	offset := s.opts.CodeOffsets[a.AccountType]
	if a.Code <= offset {
		return nil
	}
	key := id.AccountCodeSequence(a.EntityID, string(a.AccountType))
	for {
		seq, err := r.NextSequence(ctx, key)
		if err != nil {
			return fmt.Errorf("allocating account code: %w", err)
		}
		if offset+int(seq) >= a.Code {
			return nil
		}
	}
}

// Export returns an entity's chart in code order.
func (s *Service) Export(ctx context.Context, entityID int64) ([]ChartRow, error) {
	accts, err := s.List(ctx, store.AccountFilter{EntityID: entityID})
	if err != nil {
		return nil, err
	}
	var categories map[int64]string
	var currencies map[int64]string
	err = s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		cats, err := r.Categories(ctx, entityID)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		categories = make(map[int64]string, len(cats))
		for _, c := range cats {
			categories[c.ID] = c.Name
		}
		curs, err := r.Currencies(ctx, entityID)
		if err != nil {
			return fmt.Errorf("loading currencies: %w", err)
		}
		currencies = make(map[int64]string, len(curs))
		for _, c := range curs {
			currencies[c.ID] = c.CurrencyCode
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]ChartRow, len(accts))
	for i, a := range accts {
		rows[i] = ChartRow{
			Code:        a.Code,
			Name:        a.Name,
			Type:        a.AccountType,
			Category:    categories[a.CategoryID],
			Currency:    currencies[a.CurrencyID],
			Description: a.Description,
		}
	}
	return rows, nil
}

func (s *Service) categoriesByName(ctx context.Context, r store.Repository, entityID int64) (map[string]*model.Category, error) {
	cats, err := r.Categories(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	out := make(map[string]*model.Category, len(cats))
	for _, c := range cats {
		out[c.Name] = c
	}
	return out, nil
}

func currenciesByCode(ctx context.Context, r store.Repository, entityID int64) (map[string]*model.Currency, error) {
	curs, err := r.Currencies(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading currencies: %w", err)
	}
	out := make(map[string]*model.Currency, len(curs))
	for _, c := range curs {
		out[c.CurrencyCode] = c
	}
	return out, nil
}
