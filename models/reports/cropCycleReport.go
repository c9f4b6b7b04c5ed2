package reports

import (
	"context"
	"sort"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CropCycleProfitabilityRow struct {
	CropCycleId   int             `json:"crop_cycle_id"`
	Revenue       decimal.Decimal `json:"revenue"`
	Expenses      decimal.Decimal `json:"expenses"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// CropCycleProfitability groups the farm's crop-cycle tagged movements
// between from and to (inclusive), ordered by crop cycle.
func CropCycleProfitability(ctx context.Context, farmId int, from time.Time, to time.Time) ([]*CropCycleProfitabilityRow, error) {
	started := time.Now()
	start := utils.DateOnly(from)
	if utils.DateOnly(to).Before(start) {
		return nil, utils.NewFieldValidationError("to", "must not be before from")
	}
	end := utils.DateOnly(to).AddDate(0, 0, 1)
	// resolves the farm (and its tenant) before reading movements
	if _, err := models.ListBankAccounts(ctx, farmId); err != nil {
		return nil, err
	}

	var rows []struct {
		CropCycleId int
		Type        models.TransactionType
		Amount      decimal.Decimal
	}
	err := config.GetDB().WithContext(ctx).Model(&models.Transaction{}).
		Select("crop_cycle_id", "type", "amount").
		Where("farm_id = ? AND crop_cycle_id IS NOT NULL AND date >= ? AND date < ?", farmId, start, end).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byCycle := make(map[int]*CropCycleProfitabilityRow)
	for _, r := range rows {
		row, ok := byCycle[r.CropCycleId]
		if !ok {
			row = &CropCycleProfitabilityRow{CropCycleId: r.CropCycleId, Revenue: decimal.Zero, Expenses: decimal.Zero}
			byCycle[r.CropCycleId] = row
		}
		if r.Type == models.TransactionTypeExpense {
			row.Expenses = row.Expenses.Add(r.Amount)
		} else {
			row.Revenue = row.Revenue.Add(r.Amount)
		}
	}

	result := make([]*CropCycleProfitabilityRow, 0, len(byCycle))
	for _, row := range byCycle {
		row.Profit = row.Revenue.Sub(row.Expenses)
		row.MarginPercent = decimal.Zero
		if row.Revenue.IsPositive() {
			row.MarginPercent = utils.Round2(row.Profit.Div(row.Revenue).Mul(utils.DecimalOneHundred))
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CropCycleId < result[j].CropCycleId })

	logSlowReport(ctx, "CropCycleProfitability", started, logrus.Fields{"farm_id": farmId})
	return result, nil
}
