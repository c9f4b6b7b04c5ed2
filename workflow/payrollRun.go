package workflow

import (
	"context"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/sirupsen/logrus"
)

// FarmPayrollOutcome is the result of one farm within a multi-farm run.
type FarmPayrollOutcome struct {
	FarmId int                `json:"farm_id"`
	Run    *models.PayrollRun `json:"run,omitempty"`
	Err    error              `json:"-"`
	Error  string             `json:"error,omitempty"`
}

// RunMonthlyPayroll generates the period for each farm in turn. A failing farm
// is reported and skipped; farms are independent runs.
func RunMonthlyPayroll(ctx context.Context, logger *logrus.Logger, farmIds []int, month int, year int) []*FarmPayrollOutcome {
	if logger == nil {
		logger = config.GetLogger()
	}
	outcomes := make([]*FarmPayrollOutcome, 0, len(farmIds))
	for _, farmId := range farmIds {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, &FarmPayrollOutcome{FarmId: farmId, Err: err, Error: err.Error()})
			continue
		}
		run, err := models.GenerateMonthlyPayroll(ctx, farmId, month, year)
		outcome := &FarmPayrollOutcome{FarmId: farmId, Run: run, Err: err}
		if err != nil {
			outcome.Error = err.Error()
			logger.WithFields(logrus.Fields{
				"field":   "RunMonthlyPayroll",
				"farm_id": farmId,
				"month":   month,
				"year":    year,
			}).Error("payroll failed: " + err.Error())
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// FailedFarms counts outcomes with an error.
func FailedFarms(outcomes []*FarmPayrollOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
