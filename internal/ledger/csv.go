package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Header is the CSV header of a ledger export.
const Header = "id,entity_id,transaction_id,line_item_id,vat_id,post_account_id,folio_account_id,currency_id,entry_type,amount,posting_date,hash,prev_hash"

const (
	numFields    = 13
	colID        = 0
	colEntity    = 1
	colTx        = 2
	colLineItem  = 3
	colVat       = 4
	colPost      = 5
	colFolio     = 6
	colCurrency  = 7
	colEntryType = 8
	colAmount    = 9
	colDate      = 10
	colHash      = 11
	colPrevHash  = 12
)

// ReadRows reads ledger rows from an export.
func ReadRows(r io.Reader) ([]*model.Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rows []*model.Ledger
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows with a header.
func WriteRows(w io.Writer, rows []*model.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
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

// MarshalRow converts a ledger row to CSV fields. The amount keeps its full
// precision so exported rows still verify.
func MarshalRow(row *model.Ledger) []string {
	rec := make([]string, numFields)
	rec[colID] = strconv.FormatInt(row.ID, 10)
	rec[colEntity] = strconv.FormatInt(row.EntityID, 10)
	rec[colTx] = strconv.FormatInt(row.TransactionID, 10)
	rec[colLineItem] = strconv.FormatInt(row.LineItemID, 10)
	if row.VatID != 0 {
		rec[colVat] = strconv.FormatInt(row.VatID, 10)
	}
	rec[colPost] = strconv.FormatInt(row.PostAccountID, 10)
	rec[colFolio] = strconv.FormatInt(row.FolioAccountID, 10)
	rec[colCurrency] = strconv.FormatInt(row.CurrencyID, 10)
	rec[colEntryType] = string(row.EntryType)
	rec[colAmount] = row.Amount.String()
	rec[colDate] = row.PostingDate.UTC().Format(time.DateOnly)
	rec[colHash] = row.Hash
	rec[colPrevHash] = row.PrevHash
	return rec
}

// UnmarshalRow converts CSV fields to a ledger row.
func UnmarshalRow(rec []string) (*model.Ledger, error) {
	if len(rec) != numFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}

	ids := make([]int64, colCurrency+1)
	cols := strings.Split(Header, ",")
	for c := colID; c <= colCurrency; c++ {
		if c == colVat && rec[c] == "" {
			continue
		}
		v, err := strconv.ParseInt(rec[c], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", cols[c], rec[c], err)
		}
		ids[c] = v
	}

	entryType := model.EntryType(rec[colEntryType])
	if entryType != model.Debit && entryType != model.Credit {
		return nil, fmt.Errorf("unknown entry_type %q", rec[colEntryType])
	}
	amount, err := decimal.NewFromString(rec[colAmount])
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", rec[colAmount], err)
	}
	date, err := time.Parse(time.DateOnly, rec[colDate])
	if err != nil {
		return nil, fmt.Errorf("parsing posting_date %q: %w", rec[colDate], err)
	}

	return &model.Ledger{
		ID:             ids[colID],
		EntityID:       ids[colEntity],
		TransactionID:  ids[colTx],
		LineItemID:     ids[colLineItem],
		VatID:          ids[colVat],
		PostAccountID:  ids[colPost],
		FolioAccountID: ids[colFolio],
		CurrencyID:     ids[colCurrency],
		EntryType:      entryType,
		Amount:         amount,
		PostingDate:    date,
		Hash:           rec[colHash],
		PrevHash:       rec[colPrevHash],
	}, nil
}
