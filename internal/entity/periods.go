package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// OpenPeriod creates the reporting period of a fiscal year. Period counts
// run 1, 2, 3... in creation order.
func (s *Service) OpenPeriod(ctx context.Context, entityID int64, year int) (*model.ReportingPeriod, error) {
	var p *model.ReportingPeriod
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		periods, err := r.ReportingPeriods(ctx, entityID)
		if err != nil {
			return fmt.Errorf("listing reporting periods: %w", err)
		}
		for _, existing := range periods {
			if existing.CalendarYear == year {
				return fmt.Errorf("reporting period %d: %w", year, store.ErrDuplicate)
			}
		}
		p = &model.ReportingPeriod{
			EntityID:     entityID,
			CalendarYear: year,
			PeriodCount:  len(periods) + 1,
			Status:       model.PeriodActive,
		}
		if err := r.InsertReportingPeriod(ctx, p); err != nil {
			return fmt.Errorf("inserting reporting period: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("entity_id", entityID).Int("year", year).Msg("reporting period opened")
	return p, nil
}

// SetPeriodStatus moves a reporting period to status. Closing stamps the
// closing date.
func (s *Service) SetPeriodStatus(ctx context.Context, periodID int64, status model.PeriodStatus) error {
	switch status {
	case model.PeriodActive, model.PeriodAdjusting, model.PeriodClosed:
	default:
		return fmt.Errorf("unknown reporting period status %q", status)
	}
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		p, err := r.ReportingPeriod(ctx, periodID)
		if err != nil {
			return fmt.Errorf("loading reporting period %d: %w", periodID, err)
		}
		p.Status = status
		p.ClosingDate = nil
		if status == model.PeriodClosed {
			now := time.Now().UTC()
			p.ClosingDate = &now
		}
		if err := r.UpdateReportingPeriod(ctx, p); err != nil {
			return fmt.Errorf("updating reporting period: %w", err)
		}
		s.log.Info().Int64("period_id", p.ID).Int("year", p.CalendarYear).Str("status", string(status)).Msg("reporting period status changed")
		return nil
	})
}

// PeriodFor returns the reporting period a date falls in.
func (s *Service) PeriodFor(ctx context.Context, entityID int64, date time.Time) (*model.ReportingPeriod, error) {
	var p *model.ReportingPeriod
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		e, err := r.Entity(ctx, entityID)
		if err != nil {
			return fmt.Errorf("loading entity %d: %w", entityID, err)
		}
		p, err = PeriodForYear(ctx, r, e, e.ReportingYear(date))
		return err
	})
	return p, err
}

// PeriodForYear returns the entity's reporting period for a fiscal year.
func PeriodForYear(ctx context.Context, r store.Repository, e *model.Entity, year int) (*model.ReportingPeriod, error) {
	periods, err := r.ReportingPeriods(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("listing reporting periods: %w", err)
	}
	for _, p := range periods {
		if p.CalendarYear == year {
			return p, nil
		}
	}
	return nil, ifrserr.NewMissingReportingPeriod(e.Name, year)
}

// CheckPeriod rejects writes of a transaction type into a period whose
// status does not accept them.
func CheckPeriod(p *model.ReportingPeriod, txType model.TransactionType) error {
	switch p.Status {
	case model.PeriodClosed:
		return ifrserr.NewClosedReportingPeriod(p.CalendarYear)
	case model.PeriodAdjusting:
		if txType != model.JournalEntry {
			return ifrserr.NewAdjustingReportingPeriod(p.CalendarYear)
		}
	}
	return nil
}
