package workflow

import (
	"context"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/sirupsen/logrus"
)

// RunLedgerReconciliation writes mismatch rows to reconciliation_reports.
// This is intended to be run on a schedule (nightly) or via an admin trigger.
func RunLedgerReconciliation(ctx context.Context, logger *logrus.Logger, tenantId string) (*models.ReconciliationResult, error) {
	if logger == nil {
		logger = config.GetLogger()
	}
	result, err := models.RunLedgerReconciliation(ctx, tenantId)
	if err != nil {
		config.LogError(logger, "ledgerReconciliation.go", "RunLedgerReconciliation", "running checks", tenantId, err)
		return nil, err
	}

	entry := logger.WithFields(logrus.Fields{
		"field":            "LedgerReconciliation",
		"tenant_id":        tenantId,
		"correlation_id":   result.CorrelationId,
		"accounts_checked": result.AccountsChecked,
		"invoices_checked": result.InvoicesChecked,
		"mismatches":       result.Mismatches,
	})
	if result.Mismatches > 0 {
		entry.Warn("ledger reconciliation found mismatches")
	} else {
		entry.Info("ledger reconciliation completed")
	}
	return result, nil
}
