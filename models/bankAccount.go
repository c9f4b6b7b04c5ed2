package models

import (
	"context"
	"fmt"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankAccount struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"size:64;index;not null" json:"tenant_id"`
	FarmId        int             `gorm:"not null;index" json:"farm_id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	AccountNumber string          `gorm:"size:64" json:"account_number"`
	BankName      string          `gorm:"size:100" json:"bank_name"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	Version       int             `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type NewBankAccount struct {
	FarmId        int    `json:"farm_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"max=64"`
	BankName      string `json:"bank_name" validate:"max=100"`
}

func bankAccountLockKey(accountId int) string {
	return fmt.Sprintf("bank-account:%d", accountId)
}

func CreateBankAccount(ctx context.Context, input *NewBankAccount) (account *BankAccount, err error) {
	ctx, span := startSpan(ctx, "CreateBankAccount")
	defer func() { endSpan(span, err) }()

	if input == nil {
		return nil, utils.NewValidationError("bank account input is required")
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	farm, err := farmResolver.GetFarm(ctx, input.FarmId)
	if err != nil {
		return nil, err
	}

	account = &BankAccount{
		TenantId:      farm.TenantId,
		FarmId:        farm.ID,
		Name:          input.Name,
		AccountNumber: input.AccountNumber,
		BankName:      input.BankName,
		Balance:       decimal.Zero,
		Version:       1,
	}
	err = utils.RunInTransaction(ctx, config.GetDB(), func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return saveHistoryCreate(tx, account.TenantId, account.ID, ReferenceTypeBankAccount, account,
			fmt.Sprintf("Bank account %s opened.", account.Name))
	})
	if err != nil {
		config.LogError(config.GetLogger(), "bankAccount.go", "CreateBankAccount", "persist bank account", input, err)
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"field":           "CreateBankAccount",
		"farm_id":         farm.ID,
		"bank_account_id": account.ID,
	}).Info("bank account created")
	return account, nil
}

func GetBankAccount(ctx context.Context, id int) (*BankAccount, error) {
	return utils.FetchModel[BankAccount](ctx, config.GetDB(), "bank account", id)
}

// ListBankAccounts resolves a farm's bank accounts.
func ListBankAccounts(ctx context.Context, farmId int) ([]*BankAccount, error) {
	if _, err := farmResolver.GetFarm(ctx, farmId); err != nil {
		return nil, err
	}
	var accounts []*BankAccount
	err := config.GetDB().WithContext(ctx).
		Where("farm_id = ?", farmId).
		Order("id").
		Find(&accounts).Error
	return accounts, err
}

// BankAccountIds is the id projection used by the aggregate reads.
func BankAccountIds(accounts []*BankAccount) []int {
	ids := make([]int, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids
}

func lockBankAccount(tx *gorm.DB, accountId int) (*BankAccount, error) {
	var account BankAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&account, accountId).Error
	if err != nil {
		return nil, utils.TranslateDBError(err, "bank account", accountId)
	}
	return &account, nil
}

// saveBankAccountBalance stores a balance computed by the caller, guarded by the version.
func saveBankAccountBalance(tx *gorm.DB, account *BankAccount, balance decimal.Decimal) error {
	res := tx.Model(&BankAccount{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": account.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.NewConcurrencyConflictError(bankAccountLockKey(account.ID), nil)
	}
	account.Balance = balance
	account.Version++
	return nil
}

func bankAccountSpanAttr(accountId int) attribute.KeyValue {
	return attribute.Int("bank_account.id", accountId)
}
