package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// ChartRow is one account of a chart file. Category and Currency are
// names resolved against the importing entity.
type ChartRow struct {
	Code        int
	Name        string
	Type        model.AccountType
	Category    string
	Currency    string
	Description string
}

// ChartHeader is the first record of a chart file.
var ChartHeader = []string{"code", "name", "account_type", "category", "currency", "description"}

const (
	colCode = iota
	colName
	colType
	colCategory
	colCurrency
	colDesc
	numFields
)

// ReadChart reads a chart of accounts CSV with a header row.
func ReadChart(r io.Reader) ([]ChartRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chart CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]ChartRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteChart writes rows with a header.
func WriteChart(w io.Writer, rows []ChartRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ChartHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a ChartRow to a CSV record. A zero code is written
// empty.
func MarshalRow(row ChartRow) []string {
	rec := make([]string, numFields)
	if row.Code != 0 {
		rec[colCode] = strconv.Itoa(row.Code)
	}
	rec[colName] = row.Name
	rec[colType] = string(row.Type)
	rec[colCategory] = row.Category
	rec[colCurrency] = row.Currency
	rec[colDesc] = row.Description
	return rec
}

// UnmarshalRow converts a CSV record to a ChartRow.
func UnmarshalRow(rec []string) (ChartRow, error) {
	if len(rec) != numFields {
		return ChartRow{}, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}
	var code int
	if rec[colCode] != "" {
		var err error
		code, err = strconv.Atoi(rec[colCode])
		if err != nil {
			return ChartRow{}, fmt.Errorf("parsing code %q: %w", rec[colCode], err)
		}
	}
	t := model.AccountType(rec[colType])
	if !t.Valid() {
		return ChartRow{}, fmt.Errorf("unknown account type %q", rec[colType])
	}
	return ChartRow{
		Code:        code,
		Name:        rec[colName],
		Type:        t,
		Category:    rec[colCategory],
		Currency:    rec[colCurrency],
		Description: rec[colDesc],
	}, nil
}
