package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Transaction {
	return Transaction{
		Name:        "JOHN DOE",
		Timestamp:   1624507883,
		Type:        TypeDebit,
		Amount:      decimal.NewFromInt(250000),
		Status:      StatusFailed,
		Description: "restaurant",
	}
}

func TestTypeAndStatusIs(t *testing.T) {
	assert.True(t, TransactionType("debit").Is(TypeDebit))
	assert.False(t, TransactionType("debit").Is(TypeCredit))
	assert.True(t, TransactionStatus("Pending").Is(StatusPending))
	assert.False(t, TransactionStatus("").Is(StatusSuccess))
}

func TestDecodeTransaction(t *testing.T) {
	body := `[{"timestamp":1624608050,"name":"E-COMMERCE A","type":"DEBIT","amount":150000,"status":"FAILED","description":"clothes"}]`

	var got []Transaction
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 1)

	assert.Equal(t, "E-COMMERCE A", got[0].Name)
	assert.Equal(t, int64(1624608050), got[0].Timestamp)
	assert.Equal(t, TypeDebit, got[0].Type)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(150000)))
	assert.Equal(t, StatusFailed, got[0].Status)
}

func TestDecodeBalance(t *testing.T) {
	var b Balance
	require.NoError(t, json.Unmarshal([]byte(`{"balance":11750000}`), &b))
	assert.Equal(t, "11750000", b.Balance.String())
}

func TestKey_Stable(t *testing.T) {
	a := sample()
	b := sample()
	assert.Equal(t, a.Key(), b.Key())

	// Case of type/status does not change identity.
	b.Status = "failed"
	assert.Equal(t, a.Key(), b.Key())

	b.Description = "groceries"
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestKeys_DisambiguatesDuplicates(t *testing.T) {
	other := sample()
	other.Name = "COMPANY A"

	keys := Keys([]Transaction{sample(), other, sample()})
	require.Len(t, keys, 3)

	assert.Equal(t, sample().Key(), keys[0])
	assert.Equal(t, other.Key(), keys[1])
	assert.Equal(t, sample().Key()+"-2", keys[2])
}

func TestKeys_Empty(t *testing.T) {
	assert.Empty(t, Keys(nil))
}
