package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction as reported by the server.
type TransactionType string

const (
	TypeDebit  TransactionType = "DEBIT"
	TypeCredit TransactionType = "CREDIT"
)

// Is reports whether t equals other, ignoring case.
func (t TransactionType) Is(other TransactionType) bool {
	return strings.EqualFold(string(t), string(other))
}

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
	StatusPending TransactionStatus = "PENDING"
)

// Is reports whether s equals other, ignoring case.
func (s TransactionStatus) Is(other TransactionStatus) bool {
	return strings.EqualFold(string(s), string(other))
}

// Transaction is one statement row returned by the /issues endpoint.
type Transaction struct {
	Name        string            `json:"name"`
	Timestamp   int64             `json:"timestamp"` // unix seconds
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
}

// Balance is the aggregate returned by the /balance endpoint.
type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

// keySpace namespaces content-derived transaction keys.
var keySpace = uuid.MustParse("6f1c3b0e-59d4-4c8a-9a57-3c1f0e2d8b41")

// Key returns an identifier derived from the record's content. Two records
// with identical fields share a key; use Keys to disambiguate a list.
func (t Transaction) Key() string {
	fields := []string{
		t.Name,
		strconv.FormatInt(t.Timestamp, 10),
		strings.ToUpper(string(t.Type)),
		t.Amount.String(),
		strings.ToUpper(string(t.Status)),
		t.Description,
	}
	return uuid.NewSHA1(keySpace, []byte(strings.Join(fields, "\x1f"))).String()
}

// Keys returns one stable key per transaction, in order. The n-th repeat of
// an identical record gets a "-n" suffix so keys stay unique within the list.
func Keys(txns []Transaction) []string {
	keys := make([]string, len(txns))
	seen := make(map[string]int, len(txns))
	for i, t := range txns {
		k := t.Key()
		seen[k]++
		if n := seen[k]; n > 1 {
			k = k + "-" + strconv.Itoa(n)
		}
		keys[i] = k
	}
	return keys
}
