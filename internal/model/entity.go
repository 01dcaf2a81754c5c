package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Entity is the tenant that owns every other record.
type Entity struct {
	bun.BaseModel `bun:"table:entities,alias:e"`

	ID         int64  `bun:",pk,autoincrement"`
	Name       string `bun:",notnull" validate:"required"`
	CurrencyID int64  `bun:",nullzero"` // reporting currency
	// BaseRateID is the rate-1 exchange rate of the reporting currency.
	BaseRateID int64     `bun:",nullzero"`
	YearStart  int       `bun:",notnull,default:1" validate:"gte=1,lte=12"` // first month of the fiscal year
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// ReportingYear returns the fiscal year a date falls in. A fiscal year is
// named after the calendar year in which it starts.
func (e Entity) ReportingYear(t time.Time) int {
	start := e.YearStart
	if start < 1 {
		start = 1
	}
	if int(t.Month()) < start {
		return t.Year() - 1
	}
	return t.Year()
}

// YearStartDate returns the first day of the given fiscal year.
func (e Entity) YearStartDate(year int) time.Time {
	start := e.YearStart
	if start < 1 {
		start = 1
	}
	return time.Date(year, time.Month(start), 1, 0, 0, 0, 0, time.UTC)
}

// YearEndDate returns the last instant of the given fiscal year.
func (e Entity) YearEndDate(year int) time.Time {
	return e.YearStartDate(year + 1).Add(-time.Nanosecond)
}

// Currency is a monetary unit known to an entity.
type Currency struct {
	bun.BaseModel `bun:"table:currencies,alias:cur"`

	ID           int64      `bun:",pk,autoincrement"`
	EntityID     int64      `bun:",notnull"`
	Name         string     `bun:",notnull"`
	CurrencyCode string     `bun:",notnull" validate:"required,len=3"`
	DeletedAt    *time.Time `bun:",nullzero"`
}

// ExchangeRate converts a currency into the entity's reporting currency.
type ExchangeRate struct {
	bun.BaseModel `bun:"table:exchange_rates,alias:xr"`

	ID         int64           `bun:",pk,autoincrement"`
	EntityID   int64           `bun:",notnull"`
	CurrencyID int64           `bun:",notnull"`
	Rate       decimal.Decimal `bun:"type:numeric(20,8),notnull"`
	ValidFrom  time.Time       `bun:",notnull"`
	ValidTo    *time.Time      `bun:",nullzero"` // nil = open ended
}

// ValidAt reports whether the rate applies on t.
func (r ExchangeRate) ValidAt(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || t.Before(*r.ValidTo)
}

// PeriodStatus gates which transactions may be posted into a period.
type PeriodStatus string

const (
	PeriodActive    PeriodStatus = "ACTIVE"
	PeriodAdjusting PeriodStatus = "ADJUSTING"
	PeriodClosed    PeriodStatus = "CLOSED"
)

// ReportingPeriod is one fiscal year of an entity.
type ReportingPeriod struct {
	bun.BaseModel `bun:"table:reporting_periods,alias:rp"`

	ID           int64        `bun:",pk,autoincrement"`
	EntityID     int64        `bun:",notnull"`
	CalendarYear int          `bun:",notnull"`
	PeriodCount  int          `bun:",notnull"`
	Status       PeriodStatus `bun:",notnull,default:'ACTIVE'"`
	ClosingDate  *time.Time   `bun:",nullzero"`
}

// RecycledObject records a soft deletion.
type RecycledObject struct {
	bun.BaseModel `bun:"table:recycled_objects,alias:ro"`

	ID             int64     `bun:",pk,autoincrement"`
	EntityID       int64     `bun:",notnull"`
	RecyclableType string    `bun:",notnull"`
	RecyclableID   int64     `bun:",notnull"`
	DeletedAt      time.Time `bun:",notnull"`
}
