package models_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movement(txType models.TransactionType, amount string, date time.Time) *models.NewTransaction {
	return &models.NewTransaction{
		Type:     txType,
		Category: "VENTE_RECOLTE",
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordTransaction_BalanceFollowsMovements(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Ziz")
	account := seedBankAccount(t, ctx, farm)

	first, err := models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeIncome, "1000.50", day(2024, 3, 1)))
	require.NoError(t, err)
	assertDecimal(t, "1000.5", first.BalanceAfter)

	second, err := models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeExpense, "1200", day(2024, 3, 2)))
	require.NoError(t, err)
	// overdraft is allowed
	assertDecimal(t, "-199.5", second.BalanceAfter)

	stored, err := models.GetBankAccount(ctx, account.ID)
	require.NoError(t, err)
	assertDecimal(t, "-199.5", stored.Balance)
	assert.Equal(t, account.Version+2, stored.Version)
}

func TestRecordTransaction_Validation(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Dades")
	otherFarm := seedFarm(t, testTenant, "Ferme Draa")
	account := seedBankAccount(t, ctx, farm)
	foreignInvoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(otherFarm.ID))
	require.NoError(t, err)

	cases := []struct {
		name    string
		account int
		input   *models.NewTransaction
		target  error
	}{
		{"zero amount", account.ID, movement(models.TransactionTypeIncome, "0", day(2024, 1, 1)), utils.ErrValidation},
		{"sub-scale amount", account.ID, movement(models.TransactionTypeIncome, "10.00005", day(2024, 1, 1)), utils.ErrValidation},
		{"unknown type", account.ID, movement("VIREMENT", "10", day(2024, 1, 1)), utils.ErrValidation},
		{"missing category", account.ID, &models.NewTransaction{Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(1)}, utils.ErrValidation},
		{"unknown account", 9999, movement(models.TransactionTypeIncome, "10", day(2024, 1, 1)), utils.ErrNotFound},
		{"unknown invoice", account.ID, func() *models.NewTransaction {
			in := movement(models.TransactionTypeIncome, "10", day(2024, 1, 1))
			id := 9999
			in.InvoiceId = &id
			return in
		}(), utils.ErrNotFound},
		{"invoice of another farm", account.ID, func() *models.NewTransaction {
			in := movement(models.TransactionTypeIncome, "10", day(2024, 1, 1))
			in.InvoiceId = &foreignInvoice.ID
			return in
		}(), utils.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.RecordTransaction(ctx, tc.account, tc.input)
			assert.ErrorIs(t, err, tc.target)
		})
	}

	stored, err := models.GetBankAccount(ctx, account.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", stored.Balance)
}

func TestRecordTransaction_IdempotencyKey(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Sebou")
	account := seedBankAccount(t, ctx, farm)

	key := "import-line-17"
	input := movement(models.TransactionTypeIncome, "75", day(2024, 5, 5))
	input.IdempotencyKey = &key

	first, err := models.RecordTransaction(ctx, account.ID, input)
	require.NoError(t, err)
	second, err := models.RecordTransaction(ctx, account.ID, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := models.GetBankAccount(ctx, account.ID)
	require.NoError(t, err)
	assertDecimal(t, "75", stored.Balance)
}

func TestRecordTransaction_ConcurrentWritersKeepBalance(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Oum Rbia")
	account := seedBankAccount(t, ctx, farm)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txType := models.TransactionTypeIncome
			if i%4 == 0 {
				txType = models.TransactionTypeExpense
			}
			if _, err := models.RecordTransaction(ctx, account.ID, movement(txType, "10.25", day(2024, 6, 1+i))); err != nil {
				t.Errorf("writer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// 15 receipts, 5 payouts
	stored, err := models.GetBankAccount(ctx, account.ID)
	require.NoError(t, err)
	assertDecimal(t, "102.5", stored.Balance)

	result, err := models.RunLedgerReconciliation(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Mismatches)
}

func TestSumByPeriod_InclusiveRange(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Massa")
	a := seedBankAccount(t, ctx, farm)
	b := seedBankAccount(t, ctx, farm)

	for _, m := range []struct {
		account int
		txType  models.TransactionType
		amount  string
		date    time.Time
	}{
		{a.ID, models.TransactionTypeIncome, "100", day(2024, 4, 1)},
		{a.ID, models.TransactionTypeIncome, "50.5", day(2024, 4, 30)},
		{b.ID, models.TransactionTypeIncome, "25", day(2024, 4, 15)},
		{b.ID, models.TransactionTypeExpense, "40", day(2024, 4, 15)},
		{a.ID, models.TransactionTypeIncome, "999", day(2024, 5, 1)},
	} {
		_, err := models.RecordTransaction(ctx, m.account, movement(m.txType, m.amount, m.date))
		require.NoError(t, err)
	}

	income, err := models.SumByPeriod(ctx, []int{a.ID, b.ID}, models.TransactionTypeIncome, day(2024, 4, 1), day(2024, 4, 30))
	require.NoError(t, err)
	assertDecimal(t, "175.5", income)

	expenses, err := models.SumByPeriod(ctx, []int{a.ID, b.ID}, models.TransactionTypeExpense, day(2024, 4, 1), day(2024, 4, 30))
	require.NoError(t, err)
	assertDecimal(t, "40", expenses)

	onlyA, err := models.SumByPeriod(ctx, []int{a.ID}, models.TransactionTypeIncome, day(2024, 4, 30), day(2024, 5, 1))
	require.NoError(t, err)
	assertDecimal(t, "1049.5", onlyA)

	none, err := models.SumByPeriod(ctx, nil, models.TransactionTypeIncome, day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)
	assertDecimal(t, "0", none)

	_, err = models.SumByPeriod(ctx, []int{a.ID}, "AUTRE", day(2024, 1, 1), day(2024, 12, 31))
	assert.ErrorIs(t, err, utils.ErrValidation)

	// to one day before from is reversed
	_, err = models.SumByPeriod(ctx, []int{a.ID}, models.TransactionTypeIncome, day(2024, 3, 10), day(2024, 3, 9))
	assert.ErrorIs(t, err, utils.ErrValidation)

	sameDay, err := models.SumByPeriod(ctx, []int{a.ID}, models.TransactionTypeIncome, day(2024, 4, 30), day(2024, 4, 30))
	require.NoError(t, err)
	assertDecimal(t, "50.5", sameDay)
}

func TestMonthlyBuckets_ZeroFilledAndChronological(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Ourika")
	account := seedBankAccount(t, ctx, farm)

	_, err := models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeIncome, "300", day(2024, 1, 10)))
	require.NoError(t, err)
	_, err = models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeExpense, "120", day(2024, 3, 31)))
	require.NoError(t, err)
	_, err = models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeIncome, "80", day(2024, 3, 1)))
	require.NoError(t, err)
	// outside the window
	_, err = models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeIncome, "5000", day(2023, 12, 31)))
	require.NoError(t, err)

	buckets, err := models.MonthlyBuckets(ctx, []int{account.ID}, 3, day(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	expected := []struct {
		month    string
		revenue  string
		expenses string
	}{
		{"2024-01", "300", "0"},
		{"2024-02", "0", "0"},
		{"2024-03", "80", "120"},
	}
	for i, e := range expected {
		assert.Equal(t, e.month, buckets[i].Month)
		assertDecimal(t, e.revenue, buckets[i].Revenue, fmt.Sprintf("revenue %s", e.month))
		assertDecimal(t, e.expenses, buckets[i].Expenses, fmt.Sprintf("expenses %s", e.month))
	}

	_, err = models.MonthlyBuckets(ctx, []int{account.ID}, 0, day(2024, 3, 15))
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestListBankAccounts_ScopedToFarm(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Est")
	other := seedFarm(t, testTenant, "Ferme Ouest")
	seedBankAccount(t, ctx, farm)
	seedBankAccount(t, ctx, farm)
	seedBankAccount(t, ctx, other)

	accounts, err := models.ListBankAccounts(ctx, farm.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Len(t, models.BankAccountIds(accounts), 2)

	_, err = models.ListBankAccounts(ctx, 9999)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = models.CreateBankAccount(ctx, &models.NewBankAccount{FarmId: farm.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)
}
