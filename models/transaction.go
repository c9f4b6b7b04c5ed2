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
	"gorm.io/gorm"
)

// Transaction is one immutable cash movement on a bank account.
type Transaction struct {
	ID             int             `gorm:"primary_key" json:"id"`
	TenantId       string          `gorm:"size:64;index;not null" json:"tenant_id"`
	BankAccountId  int             `gorm:"not null;index;uniqueIndex:idx_transaction_idempotency" json:"bank_account_id"`
	FarmId         int             `gorm:"not null;index" json:"farm_id"`
	Type           TransactionType `gorm:"size:10;not null;index" json:"type"`
	Category       string          `gorm:"size:64;not null" json:"category"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Date           time.Time       `gorm:"not null;index" json:"date"`
	Description    string          `gorm:"type:text" json:"description"`
	InvoiceId      *int            `gorm:"index" json:"invoice_id,omitempty"`
	CropCycleId    *int            `gorm:"index" json:"crop_cycle_id,omitempty"`
	Reference      string          `gorm:"size:100" json:"reference"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance_after"`
	IdempotencyKey *string         `gorm:"size:128;uniqueIndex:idx_transaction_idempotency" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type NewTransaction struct {
	Type           TransactionType `json:"type" validate:"required,oneof=RECETTE DEPENSE"`
	Category       string          `json:"category" validate:"required,max=64"`
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description" validate:"max=2000"`
	InvoiceId      *int            `json:"invoice_id" validate:"omitempty,gt=0"`
	CropCycleId    *int            `json:"crop_cycle_id" validate:"omitempty,gt=0"`
	Reference      string          `json:"reference" validate:"max=100"`
	IdempotencyKey *string         `json:"idempotency_key" validate:"omitempty,min=1,max=128"`
}

type TransactionFilter struct {
	BankAccountId *int             `json:"bank_account_id"`
	FarmId        *int             `json:"farm_id"`
	Type          *TransactionType `json:"type"`
	CropCycleId   *int             `json:"crop_cycle_id"`
	FromDate      *time.Time       `json:"from_date"`
	ToDate        *time.Time       `json:"to_date"`
}

// MonthlyBucket is one calendar month of ledger activity.
type MonthlyBucket struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
}

const maxBucketMonths = 120

func (t Transaction) GetId() int {
	return t.ID
}

// SignedAmount is the effect of a movement on the account balance.
func SignedAmount(txType TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

func RecordTransaction(ctx context.Context, accountId int, input *NewTransaction) (txn *Transaction, err error) {
	ctx, span := startSpan(ctx, "RecordTransaction", bankAccountSpanAttr(accountId))
	defer func() { endSpan(span, err) }()

	if input == nil {
		return nil, utils.NewValidationError("transaction input is required")
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := utils.CheckMoneyScale("amount", input.Amount); err != nil {
		return nil, err
	}
	account, err := GetBankAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if input.InvoiceId != nil {
		invoice, err := utils.FetchModel[Invoice](ctx, config.GetDB(), "invoice", *input.InvoiceId)
		if err != nil {
			return nil, err
		}
		if invoice.FarmId != account.FarmId {
			return nil, utils.NewNotFoundError("invoice", *input.InvoiceId)
		}
	}

	entry := *input
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	entry.Date = utils.DateOnly(entry.Date)

	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, config.GetDB(), func(tx *gorm.DB) error {
			var err error
			txn, err = recordTransactionTx(tx, accountId, &entry, 0)
			return err
		})
	}, bankAccountLockKey(accountId))
	if err != nil {
		if !utils.IsClientError(err) && !utils.IsNotFound(err) {
			config.LogError(config.GetLogger(), "transaction.go", "RecordTransaction", "record transaction", accountId, err)
		}
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"field":           "RecordTransaction",
		"bank_account_id": accountId,
		"transaction_id":  txn.ID,
	}).Info("transaction recorded")
	return txn, nil
}

// recordTransactionTx appends a movement and moves the balance inside tx.
// The caller holds the account's keyed lock. A non-zero farmId requires the
// account to belong to that farm.
func recordTransactionTx(tx *gorm.DB, accountId int, input *NewTransaction, farmId int) (*Transaction, error) {
	if input.IdempotencyKey != nil {
		var existing Transaction
		err := tx.Where("bank_account_id = ? AND idempotency_key = ?", accountId, *input.IdempotencyKey).Take(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	account, err := lockBankAccount(tx, accountId)
	if err != nil {
		return nil, err
	}
	if farmId != 0 && account.FarmId != farmId {
		return nil, utils.NewBusinessRuleError("bank account %d does not belong to farm %d", accountId, farmId)
	}

	// computed here, not in SQL, so every driver stores the exact decimal
	balance := account.Balance.Add(SignedAmount(input.Type, input.Amount))
	txn := &Transaction{
		TenantId:       account.TenantId,
		BankAccountId:  account.ID,
		FarmId:         account.FarmId,
		Type:           input.Type,
		Category:       input.Category,
		Amount:         input.Amount,
		Date:           utils.DateOnly(input.Date),
		Description:    input.Description,
		InvoiceId:      input.InvoiceId,
		CropCycleId:    input.CropCycleId,
		Reference:      input.Reference,
		BalanceAfter:   balance,
		IdempotencyKey: input.IdempotencyKey,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, utils.TranslateDBError(err, bankAccountLockKey(accountId), nil)
	}
	if err := saveBankAccountBalance(tx, account, balance); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("%s %v on account %s (%s).", txn.Type, txn.Amount, account.Name, txn.Category)
	if err := saveHistoryCreate(tx, txn.TenantId, txn.ID, ReferenceTypeTransaction, txn, description); err != nil {
		return nil, err
	}
	return txn, nil
}

// SumByPeriod totals one movement type over from..to, both days inclusive.
func SumByPeriod(ctx context.Context, accountIds []int, txType TransactionType, from time.Time, to time.Time) (decimal.Decimal, error) {
	if !txType.IsValid() {
		return decimal.Zero, utils.NewFieldValidationError("type", fmt.Sprintf("unknown transaction type %q", txType))
	}
	start := utils.DateOnly(from)
	if utils.DateOnly(to).Before(start) {
		return decimal.Zero, utils.NewFieldValidationError("to", "must not be before from")
	}
	end := utils.DateOnly(to).AddDate(0, 0, 1)
	if len(accountIds) == 0 {
		return decimal.Zero, nil
	}

	var amounts []decimal.Decimal
	err := config.GetDB().WithContext(ctx).Model(&Transaction{}).
		Where("bank_account_id IN ? AND type = ? AND date >= ? AND date < ?", accountIds, txType, start, end).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return utils.SumDecimals(amounts...), nil
}

// MonthlyBuckets returns the `months` calendar months ending with asOf's
// month, oldest first. Months without activity are zero.
func MonthlyBuckets(ctx context.Context, accountIds []int, months int, asOf time.Time) ([]MonthlyBucket, error) {
	if months < 1 || months > maxBucketMonths {
		return nil, utils.NewFieldValidationError("months", fmt.Sprintf("must be between 1 and %d", maxBucketMonths))
	}
	asOf = asOf.UTC()
	end := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)

	buckets := make([]MonthlyBucket, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := utils.MonthKey(start.AddDate(0, i, 0))
		buckets[i] = MonthlyBucket{Month: key, Revenue: decimal.Zero, Expenses: decimal.Zero}
		index[key] = i
	}
	if len(accountIds) == 0 {
		return buckets, nil
	}

	var rows []struct {
		Type   TransactionType
		Amount decimal.Decimal
		Date   time.Time
	}
	err := config.GetDB().WithContext(ctx).Model(&Transaction{}).
		Select("type", "amount", "date").
		Where("bank_account_id IN ? AND date >= ? AND date < ?", accountIds, start, end).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		i, ok := index[utils.MonthKey(r.Date)]
		if !ok {
			continue
		}
		if r.Type == TransactionTypeExpense {
			buckets[i].Expenses = buckets[i].Expenses.Add(r.Amount)
		} else {
			buckets[i].Revenue = buckets[i].Revenue.Add(r.Amount)
		}
	}
	return buckets, nil
}

func ListTransactions(ctx context.Context, filter *TransactionFilter, limit *int, after *string) (*Connection[Transaction], error) {
	dbCtx := config.GetDB().WithContext(ctx)
	if filter != nil {
		if filter.BankAccountId != nil {
			dbCtx = dbCtx.Where("bank_account_id = ?", *filter.BankAccountId)
		}
		if filter.FarmId != nil {
			dbCtx = dbCtx.Where("farm_id = ?", *filter.FarmId)
		}
		if filter.Type != nil {
			dbCtx = dbCtx.Where("type = ?", *filter.Type)
		}
		if filter.CropCycleId != nil {
			dbCtx = dbCtx.Where("crop_cycle_id = ?", *filter.CropCycleId)
		}
		if filter.FromDate != nil {
			dbCtx = dbCtx.Where("date >= ?", utils.DateOnly(*filter.FromDate))
		}
		if filter.ToDate != nil {
			dbCtx = dbCtx.Where("date < ?", utils.DateOnly(*filter.ToDate).AddDate(0, 0, 1))
		}
	}
	return FetchPageById[Transaction](dbCtx, limit, after)
}
