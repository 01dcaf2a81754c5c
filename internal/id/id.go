package id

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTransactionNo returns a transaction number like "IN01/0001": the
// transaction type, the reporting period count and the per-type sequence.
func FormatTransactionNo(txType string, periodCount int, seq int64) string {
	return fmt.Sprintf("%s%02d/%04d", txType, periodCount, seq)
}

// ParseTransactionNo parses "IN01/0001" into type, period count and sequence.
func ParseTransactionNo(no string) (txType string, periodCount int, seq int64, err error) {
	prefix, seqPart, ok := strings.Cut(no, "/")
	if !ok || len(prefix) < 3 {
		return "", 0, 0, fmt.Errorf("invalid transaction number format: %q", no)
	}

	i := 0
	for i < len(prefix) && prefix[i] >= 'A' && prefix[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(prefix) {
		return "", 0, 0, fmt.Errorf("invalid transaction number format: %q", no)
	}
	txType = prefix[:i]

	periodCount, err = strconv.Atoi(prefix[i:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid period count in transaction number %q: %w", no, err)
	}

	seq, err = strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in transaction number %q: %w", no, err)
	}

	return txType, periodCount, seq, nil
}

// TransactionSequence names the counter behind transaction numbers of one
// type within one reporting period.
func TransactionSequence(entityID, periodID int64, txType string) string {
	return fmt.Sprintf("transaction_no:%d:%d:%s", entityID, periodID, txType)
}

// AccountCodeSequence names the counter behind account codes of one type.
func AccountCodeSequence(entityID int64, accountType string) string {
	return fmt.Sprintf("account_code:%d:%s", entityID, accountType)
}
