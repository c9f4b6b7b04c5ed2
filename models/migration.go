package models

import (
	"log"

	"github.com/fla-erp/ledger_backend/config"
)

// MigrateTable creates or alters the tables this service owns.
func MigrateTable() {
	if err := config.GetDB().AutoMigrate(
		&BankAccount{}, &Transaction{},
		&Invoice{}, &InvoiceLine{}, &InvoiceNumberSequence{},
		&Payment{},
		&Payslip{},
		&History{},
		&ReconciliationReport{},
	); err != nil {
		log.Fatal(err)
	}
}

// MigrateReadModels creates the farm/HR/party tables. Production reads them
// from the owning services' schema; sqlite deployments and tests need them locally.
func MigrateReadModels() {
	if err := config.GetDB().AutoMigrate(
		&Farm{}, &Employee{}, &Attendance{}, &Client{}, &Supplier{},
	); err != nil {
		log.Fatal(err)
	}
}
