package models

import "time"

// Drift detection output (nightly or admin-triggered).
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TenantId      string    `gorm:"size:64;index;not null" json:"tenant_id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"`  // ACCOUNT_BALANCE, INVOICE_DUE
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"` // BankAccount, Invoice
	EntityId      int       `gorm:"index;not null" json:"entity_id"`
	Details       string    `gorm:"type:text" json:"details"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	CheckTypeAccountBalance = "ACCOUNT_BALANCE"
	CheckTypeInvoiceDue     = "INVOICE_DUE"
)

// ReconciliationResult summarizes one run.
type ReconciliationResult struct {
	CorrelationId   string `json:"correlation_id"`
	AccountsChecked int    `json:"accounts_checked"`
	InvoicesChecked int    `json:"invoices_checked"`
	Mismatches      int    `json:"mismatches"`
}
