package ledger

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Algorithms are the supported row digest names.
var Algorithms = []string{"sha256", "sha512", "sha3-256", "blake2b-256"}

// Hasher computes the chained digest of ledger rows.
type Hasher struct {
	algorithm string
	secret    string
	newHash   func() hash.Hash
}

// NewHasher returns a Hasher for algorithm. The first row of every entity's
// chain is seeded with secret.
func NewHasher(algorithm, secret string) (*Hasher, error) {
	h := &Hasher{algorithm: algorithm, secret: secret}
	switch algorithm {
	case "sha256":
		h.newHash = sha256.New
	case "sha512":
		h.newHash = sha512.New
	case "sha3-256":
		h.newHash = sha3.New256
	case "blake2b-256":
		h.newHash = func() hash.Hash {
			d, _ := blake2b.New256(nil)
			return d
		}
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, fmt.Errorf("hash secret must not be empty")
	}
	return h, nil
}

// Algorithm returns the digest name.
func (h *Hasher) Algorithm() string { return h.algorithm }

// Digest returns the hex digest of row chained to row.PrevHash.
func (h *Hasher) Digest(row *model.Ledger) string {
	prev := row.PrevHash
	if prev == "" {
		prev = h.secret
	}
	d := h.newHash()
	d.Write([]byte(prev))
	d.Write([]byte{'|'})
	d.Write([]byte(canonical(row)))
	return hex.EncodeToString(d.Sum(nil))
}

// Seal sets PrevHash and Hash on row.
func (h *Hasher) Seal(row *model.Ledger, prev string) {
	row.PrevHash = prev
	row.Hash = h.Digest(row)
}

// Verify reports whether the stored hash of row matches its fields.
func (h *Hasher) Verify(row *model.Ledger) bool {
	return row.Hash != "" && row.Hash == h.Digest(row)
}

func canonical(row *model.Ledger) string {
	fields := []string{
		strconv.FormatInt(row.ID, 10),
		strconv.FormatInt(row.EntityID, 10),
		strconv.FormatInt(row.TransactionID, 10),
		strconv.FormatInt(row.LineItemID, 10),
		strconv.FormatInt(row.VatID, 10),
		strconv.FormatInt(row.PostAccountID, 10),
		strconv.FormatInt(row.FolioAccountID, 10),
		strconv.FormatInt(row.CurrencyID, 10),
		string(row.EntryType),
		row.Amount.StringFixed(model.LedgerScale),
		row.PostingDate.UTC().Format(time.DateOnly),
	}
	return strings.Join(fields, "|")
}
