package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/fla-erp/ledger_backend/workflow"
)

func main() {
	tenantID := flag.String("tenant-id", "", "Optional: reconcile only one tenant. If empty, reconciles every tenant owning a bank account or invoice.")
	failOnMismatch := flag.Bool("fail-on-mismatch", false, "Exit non-zero when any mismatch is reported.")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if !config.SkipMigrations() {
		models.MigrateTable()
	}

	// Cross-tenant job: every query below filters on tenant_id explicitly.
	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUsernameInContext(ctx, "LedgerReconcile")

	var tenants []string
	if t := strings.TrimSpace(*tenantID); t != "" {
		tenants = []string{t}
	} else {
		var fromAccounts, fromInvoices []string
		if err := db.WithContext(ctx).Model(&models.BankAccount{}).Distinct().Pluck("tenant_id", &fromAccounts).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to list tenants: %v\n", err)
			os.Exit(1)
		}
		if err := db.WithContext(ctx).Model(&models.Invoice{}).Distinct().Pluck("tenant_id", &fromInvoices).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to list tenants: %v\n", err)
			os.Exit(1)
		}
		tenants = utils.UniqueSlice(append(fromAccounts, fromInvoices...))
	}

	total := 0
	for _, tenant := range tenants {
		result, err := workflow.RunLedgerReconciliation(ctx, config.GetLogger(), tenant)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tenant %s: %v\n", tenant, err)
			os.Exit(1)
		}
		fmt.Printf("tenant=%s accounts=%d invoices=%d mismatches=%d correlation_id=%s\n",
			tenant, result.AccountsChecked, result.InvoicesChecked, result.Mismatches, result.CorrelationId)
		total += result.Mismatches
	}
	if *failOnMismatch && total > 0 {
		os.Exit(1)
	}
}
