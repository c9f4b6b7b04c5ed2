package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// RunLedgerReconciliation writes a reconciliation_reports row for every bank
// account whose balance differs from its transactions and every invoice whose
// paid/due figures disagree with its total or its payments. Reads only; the
// ledger itself is never corrected here.
func RunLedgerReconciliation(ctx context.Context, tenantId string) (result *ReconciliationResult, err error) {
	ctx, span := startSpan(ctx, "RunLedgerReconciliation", attribute.String("tenant.id", tenantId))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(tenantId) == "" {
		return nil, utils.NewFieldValidationError("tenant_id", "required")
	}
	db := config.GetDB()
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	cid := utils.CorrelationIdOrNew(ctx)
	now := time.Now().UTC()
	result = &ReconciliationResult{CorrelationId: cid}

	report := func(checkType string, entityType string, entityId int, details string) error {
		result.Mismatches++
		return db.WithContext(ctx).Create(&ReconciliationReport{
			TenantId:      tenantId,
			CheckType:     checkType,
			EntityType:    entityType,
			EntityId:      entityId,
			Details:       details,
			CorrelationId: cid,
			CreatedAt:     now,
		}).Error
	}

	// 1) account balance vs sum of signed movements
	var accounts []*BankAccount
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	for _, account := range accounts {
		var rows []struct {
			Type   TransactionType
			Amount decimal.Decimal
		}
		if err := db.WithContext(ctx).Model(&Transaction{}).
			Select("type", "amount").
			Where("tenant_id = ? AND bank_account_id = ?", tenantId, account.ID).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		expected := decimal.Zero
		for _, r := range rows {
			expected = expected.Add(SignedAmount(r.Type, r.Amount))
		}
		if !utils.RoundMoney(expected).Equal(utils.RoundMoney(account.Balance)) {
			if err := report(CheckTypeAccountBalance, ReferenceTypeBankAccount, account.ID,
				fmt.Sprintf("balance=%s != sum(transactions)=%s", account.Balance, expected)); err != nil {
				return nil, err
			}
		}
	}
	result.AccountsChecked = len(accounts)

	// 2) invoice due/paid vs total and payments
	var invoices []*Invoice
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		var amounts []decimal.Decimal
		if err := db.WithContext(ctx).Model(&Payment{}).
			Where("tenant_id = ? AND invoice_id = ?", tenantId, invoice.ID).
			Pluck("amount", &amounts).Error; err != nil {
			return nil, err
		}
		for _, problem := range invoiceDrift(invoice, utils.SumDecimals(amounts...)) {
			if err := report(CheckTypeInvoiceDue, ReferenceTypeInvoice, invoice.ID, problem); err != nil {
				return nil, err
			}
		}
	}
	result.InvoicesChecked = len(invoices)

	config.GetLogger().WithFields(logrus.Fields{
		"field":            "LedgerReconciliation",
		"tenant_id":        tenantId,
		"correlation_id":   cid,
		"accounts_checked": result.AccountsChecked,
		"invoices_checked": result.InvoicesChecked,
		"mismatches":       result.Mismatches,
	}).Info("ledger reconciliation completed")
	return result, nil
}

func invoiceDrift(invoice *Invoice, paymentsTotal decimal.Decimal) []string {
	var problems []string
	due := utils.RoundMoney(invoice.AmountDue)
	if !due.Equal(utils.RoundMoney(invoice.Total.Sub(invoice.AmountPaid))) {
		problems = append(problems, fmt.Sprintf("amount_due=%s != total=%s - amount_paid=%s",
			invoice.AmountDue, invoice.Total, invoice.AmountPaid))
	}
	if due.IsNegative() {
		problems = append(problems, fmt.Sprintf("amount_due=%s is negative", invoice.AmountDue))
	}
	if !utils.RoundMoney(invoice.AmountPaid).Equal(utils.RoundMoney(paymentsTotal)) {
		problems = append(problems, fmt.Sprintf("amount_paid=%s != sum(payments)=%s", invoice.AmountPaid, paymentsTotal))
	}
	return problems
}
