package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "C$12.50", money(decimal.RequireFromString("12.5")))
	assert.Equal(t, "C$0.00", money(decimal.Zero))
}

func TestSingleID(t *testing.T) {
	id, err := singleID(newFlagSet("remove"), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = singleID(newFlagSet("remove"), nil)
	assert.Error(t, err)
}

func TestPrintMedications_MarcaStockBajoYLocal(t *testing.T) {
	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()

	exp := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	printMedications([]*entity.Medication{
		{ID: "m1", Name: "Ibuprofeno", Quantity: 40, Price: decimal.RequireFromString("3.25"), ExpirationDate: &exp},
		{ID: entity.LocalIDPrefix + "1", Name: "Loratadina", Quantity: 2, Price: decimal.NewFromInt(5)},
	})

	out := buf.String()
	assert.Contains(t, out, "Ibuprofeno")
	assert.Contains(t, out, "C$3.25")
	assert.Contains(t, out, "2027-01-31")
	assert.Contains(t, out, "stock bajo local")
}
