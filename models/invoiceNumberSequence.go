package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fla-erp/ledger_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceNumberPrefix = "FLA"

// InvoiceNumberSequence is the per-(farm, year) counter behind invoice numbers.
type InvoiceNumberSequence struct {
	FarmId    int       `gorm:"primaryKey;autoIncrement:false" json:"farm_id"`
	Year      int       `gorm:"primaryKey;autoIncrement:false" json:"year"`
	TenantId  string    `gorm:"size:64;index;not null" json:"tenant_id"`
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FormatInvoiceNumber(year int, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", invoiceNumberPrefix, year, seq)
}

// parseInvoiceSequence returns the numeric suffix of FLA-{year}-{seq}, or 0.
func parseInvoiceSequence(number string, year int) int {
	prefix := fmt.Sprintf("%s-%d-", invoiceNumberPrefix, year)
	if !strings.HasPrefix(number, prefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil {
		return 0
	}
	return n
}

func invoiceNumberLockKey(farmId int, year int) string {
	return fmt.Sprintf("invoice-number:%d:%d", farmId, year)
}

// nextInvoiceNumber allocates the next number inside tx. The sequence row is
// locked for update and bumped with a compare-and-set, so two writers can
// never commit the same value.
func nextInvoiceNumber(tx *gorm.DB, farm *Farm, year int) (string, error) {
	var seq InvoiceNumberSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND year = ?", farm.ID, year).
		Take(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seed, err := seedInvoiceSequence(tx, farm.ID, year)
		if err != nil {
			return "", err
		}
		seq = InvoiceNumberSequence{FarmId: farm.ID, Year: year, TenantId: farm.TenantId, LastValue: seed}
		if err := tx.Create(&seq).Error; err != nil {
			return "", utils.TranslateDBError(err, invoiceNumberLockKey(farm.ID, year), nil)
		}
	} else if err != nil {
		return "", err
	}

	next := seq.LastValue + 1
	res := tx.Model(&InvoiceNumberSequence{}).
		Where("farm_id = ? AND year = ? AND last_value = ?", farm.ID, year, seq.LastValue).
		Update("last_value", next)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected != 1 {
		return "", utils.NewConcurrencyConflictError(invoiceNumberLockKey(farm.ID, year), nil)
	}
	return FormatInvoiceNumber(year, next), nil
}

// seedInvoiceSequence starts a new (farm, year) counter after any invoices
// that predate it: the larger of their count and their highest suffix.
func seedInvoiceSequence(tx *gorm.DB, farmId int, year int) (int, error) {
	from, to := utils.YearRange(year)
	var numbers []string
	if err := tx.Model(&Invoice{}).
		Where("farm_id = ? AND date >= ? AND date < ?", farmId, from, to).
		Pluck("invoice_number", &numbers).Error; err != nil {
		return 0, err
	}
	seed := len(numbers)
	for _, n := range numbers {
		if s := parseInvoiceSequence(n, year); s > seed {
			seed = s
		}
	}
	return seed, nil
}
