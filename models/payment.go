package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Payment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	TenantId       string          `gorm:"size:64;index;not null" json:"tenant_id"`
	InvoiceId      int             `gorm:"not null;index;uniqueIndex:idx_payment_idempotency" json:"invoice_id"`
	FarmId         int             `gorm:"not null;index" json:"farm_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Date           time.Time       `gorm:"not null" json:"date"`
	Method         PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Reference      string          `gorm:"size:100" json:"reference"`
	Bank           string          `gorm:"size:100" json:"bank"`
	Notes          string          `gorm:"type:text" json:"notes"`
	BankAccountId  *int            `gorm:"index" json:"bank_account_id,omitempty"`
	TransactionId  *int            `json:"transaction_id,omitempty"`
	IdempotencyKey *string         `gorm:"size:128;uniqueIndex:idx_payment_idempotency" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type NewPayment struct {
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	Date           time.Time       `json:"date"`
	Method         PaymentMethod   `json:"method" validate:"required,oneof=ESPECES CHEQUE VIREMENT CARTE EFFET AUTRE"`
	Reference      string          `json:"reference" validate:"max=100"`
	Bank           string          `json:"bank" validate:"max=100"`
	Notes          string          `json:"notes" validate:"max=2000"`
	BankAccountId  *int            `json:"bank_account_id" validate:"omitempty,gt=0"`
	IdempotencyKey *string         `json:"idempotency_key" validate:"omitempty,min=1,max=128"`
}

func (p Payment) GetId() int {
	return p.ID
}

// settlementStatus derives the status from what is still owed.
func settlementStatus(amountDue decimal.Decimal) InvoiceStatus {
	if amountDue.LessThanOrEqual(decimal.Zero) {
		return InvoiceStatusPaid
	}
	return InvoiceStatusPartiallyPaid
}

// ApplyPayment settles part or all of an invoice. The due amount is re-read
// under the invoice lock inside the same transaction that writes the payment.
// When BankAccountId is set the cash movement is booked on that account in
// the same transaction.
func ApplyPayment(ctx context.Context, invoiceId int, input *NewPayment) (payment *Payment, err error) {
	ctx, span := startSpan(ctx, "ApplyPayment", attribute.Int("invoice.id", invoiceId))
	defer func() { endSpan(span, err) }()

	if input == nil {
		return nil, utils.NewValidationError("payment input is required")
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := utils.CheckMoneyScale("amount", input.Amount); err != nil {
		return nil, err
	}
	date := time.Now().UTC()
	if !input.Date.IsZero() {
		date = input.Date
	}
	date = utils.DateOnly(date)

	keys := []string{invoiceLockKey(invoiceId)}
	if input.BankAccountId != nil {
		// resolve before the transaction; a missing account is a 404, not a rollback
		if _, err := GetBankAccount(ctx, *input.BankAccountId); err != nil {
			return nil, err
		}
		keys = append(keys, bankAccountLockKey(*input.BankAccountId))
	}

	db := config.GetDB()
	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, db, func(tx *gorm.DB) error {
			if input.IdempotencyKey != nil {
				existing, err := findPaymentByIdempotencyKey(tx, invoiceId, *input.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					payment = existing
					return nil
				}
			}

			invoice, err := lockInvoice(tx, invoiceId)
			if err != nil {
				return err
			}
			if invoice.Status == InvoiceStatusCancelled {
				return utils.NewBusinessRuleError("invoice is cancelled")
			}
			if invoice.Status.IsTerminal() {
				return utils.NewBusinessRuleError("invoice %s is %s and accepts no payment", invoice.InvoiceNumber, invoice.Status)
			}
			if input.Amount.GreaterThan(invoice.AmountDue) {
				return utils.NewBusinessRuleError("amount exceeds remaining due")
			}

			payment = &Payment{
				TenantId:       invoice.TenantId,
				InvoiceId:      invoice.ID,
				FarmId:         invoice.FarmId,
				Amount:         input.Amount,
				Date:           date,
				Method:         input.Method,
				Reference:      input.Reference,
				Bank:           input.Bank,
				Notes:          input.Notes,
				BankAccountId:  input.BankAccountId,
				IdempotencyKey: input.IdempotencyKey,
			}

			if input.BankAccountId != nil {
				category := CategoryInvoiceReceipt
				if invoice.Type.CashDirection() == TransactionTypeExpense {
					category = CategoryInvoicePayout
				}
				txn, err := recordTransactionTx(tx, *input.BankAccountId, &NewTransaction{
					Type:        invoice.Type.CashDirection(),
					Category:    category,
					Amount:      input.Amount,
					Date:        date,
					Description: fmt.Sprintf("Payment on invoice %s", invoice.InvoiceNumber),
					InvoiceId:   &invoice.ID,
					Reference:   input.Reference,
				}, invoice.FarmId)
				if err != nil {
					return err
				}
				payment.TransactionId = &txn.ID
			}

			if err := tx.Create(payment).Error; err != nil {
				return utils.TranslateDBError(err, "payment", nil)
			}

			before := map[string]interface{}{
				"amount_paid": invoice.AmountPaid,
				"amount_due":  invoice.AmountDue,
				"status":      invoice.Status,
			}
			amountPaid := invoice.AmountPaid.Add(input.Amount)
			amountDue := invoice.Total.Sub(amountPaid)
			status := settlementStatus(amountDue)
			after := map[string]interface{}{
				"amount_paid": amountPaid,
				"amount_due":  amountDue,
				"status":      status,
			}
			if err := saveInvoiceState(tx, invoice, after); err != nil {
				return err
			}
			description := fmt.Sprintf("Payment of %v applied to invoice %s.", input.Amount, invoice.InvoiceNumber)
			return saveHistoryUpdate(tx, invoice.TenantId, invoice.ID, ReferenceTypeInvoice, before, after, description)
		})
	}, keys...)
	if err != nil {
		if !utils.IsClientError(err) && !utils.IsNotFound(err) {
			config.LogError(config.GetLogger(), "payment.go", "ApplyPayment", "apply payment", invoiceId, err)
		}
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"field":      "ApplyPayment",
		"invoice_id": invoiceId,
		"payment_id": payment.ID,
	}).Info("payment applied")
	return payment, nil
}

func findPaymentByIdempotencyKey(tx *gorm.DB, invoiceId int, key string) (*Payment, error) {
	var payment Payment
	err := tx.Where("invoice_id = ? AND idempotency_key = ?", invoiceId, key).Take(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetInvoicePayments lists an invoice's payments in the order they were applied.
func GetInvoicePayments(ctx context.Context, invoiceId int) ([]*Payment, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Invoice](ctx, db, "invoice", invoiceId); err != nil {
		return nil, err
	}
	var payments []*Payment
	err := db.WithContext(ctx).Where("invoice_id = ?", invoiceId).Order("id").Find(&payments).Error
	return payments, err
}
