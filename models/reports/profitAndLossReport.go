package reports

import (
	"context"
	"time"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProfitAndLossRow struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

type ProfitAndLossResponse struct {
	FarmId        int                `json:"farm_id"`
	Year          int                `json:"year"`
	Months        []ProfitAndLossRow `json:"months"`
	TotalRevenue  decimal.Decimal    `json:"total_revenue"`
	TotalExpenses decimal.Decimal    `json:"total_expenses"`
	TotalProfit   decimal.Decimal    `json:"total_profit"`
}

// MonthlyProfitAndLoss reports January..December of year over every bank
// account of the farm.
func MonthlyProfitAndLoss(ctx context.Context, farmId int, year int) (*ProfitAndLossResponse, error) {
	started := time.Now()
	if year < 2000 {
		return nil, utils.NewFieldValidationError("year", "must be 2000 or later")
	}
	accounts, err := models.ListBankAccounts(ctx, farmId)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey(ctx, "pnl", farmId, year)
	var cached ProfitAndLossResponse
	if ok, err := cacheGet(key, &cached); err == nil && ok {
		return &cached, nil
	}

	buckets, err := models.MonthlyBuckets(ctx, models.BankAccountIds(accounts), 12,
		time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}

	response := &ProfitAndLossResponse{
		FarmId:        farmId,
		Year:          year,
		Months:        make([]ProfitAndLossRow, 0, len(buckets)),
		TotalRevenue:  decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, b := range buckets {
		response.Months = append(response.Months, ProfitAndLossRow{
			Month:    b.Month,
			Revenue:  b.Revenue,
			Expenses: b.Expenses,
			Profit:   b.Revenue.Sub(b.Expenses),
		})
		response.TotalRevenue = response.TotalRevenue.Add(b.Revenue)
		response.TotalExpenses = response.TotalExpenses.Add(b.Expenses)
	}
	response.TotalProfit = response.TotalRevenue.Sub(response.TotalExpenses)

	cacheSet(key, response)
	logSlowReport(ctx, "MonthlyProfitAndLoss", started, logrus.Fields{"farm_id": farmId, "year": year})
	return response, nil
}
