package models_test

import (
	"testing"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLedgerReconciliation_CleanLedger(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Propre")
	account := seedBankAccount(t, ctx, farm)
	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)
	input := newPayment("100")
	input.BankAccountId = &account.ID
	_, err = models.ApplyPayment(ctx, invoice.ID, input)
	require.NoError(t, err)

	result, err := models.RunLedgerReconciliation(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccountsChecked)
	assert.Equal(t, 1, result.InvoicesChecked)
	assert.Equal(t, 0, result.Mismatches)
	assert.NotEmpty(t, result.CorrelationId)
}

func TestRunLedgerReconciliation_ReportsDrift(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Derive")
	account := seedBankAccount(t, ctx, farm)
	_, err := models.RecordTransaction(ctx, account.ID, movement(models.TransactionTypeIncome, "500", day(2024, 2, 1)))
	require.NoError(t, err)
	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)

	// tamper outside the ledger operations
	db := config.GetDB()
	require.NoError(t, db.Model(&models.BankAccount{}).Where("id = ?", account.ID).
		Update("balance", decimal.NewFromInt(450)).Error)
	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Update("amount_paid", decimal.NewFromInt(40)).Error)

	result, err := models.RunLedgerReconciliation(ctx, testTenant)
	require.NoError(t, err)
	// balance drift, due != total - paid, paid != sum(payments)
	assert.Equal(t, 3, result.Mismatches)

	var reports []models.ReconciliationReport
	require.NoError(t, db.Where("correlation_id = ?", result.CorrelationId).Order("id").Find(&reports).Error)
	require.Len(t, reports, 3)
	assert.Equal(t, models.CheckTypeAccountBalance, reports[0].CheckType)
	assert.Equal(t, account.ID, reports[0].EntityId)
	assert.Equal(t, models.CheckTypeInvoiceDue, reports[1].CheckType)
	assert.Equal(t, invoice.ID, reports[1].EntityId)
	assert.Equal(t, testTenant, reports[2].TenantId)

	// another tenant's run sees nothing
	other, err := models.RunLedgerReconciliation(tenantContext("tenant-b"), "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, 0, other.AccountsChecked)
	assert.Equal(t, 0, other.Mismatches)

	_, err = models.RunLedgerReconciliation(ctx, " ")
	assert.ErrorIs(t, err, utils.ErrValidation)
}
