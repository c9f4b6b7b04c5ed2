package models

import (
	"context"
	"fmt"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models/statutory"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Payslip is one employee-month. Recomputing overwrites every figure.
type Payslip struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"size:64;index;not null" json:"tenant_id"`
	EmployeeId    int             `gorm:"not null;uniqueIndex:idx_payslip_period" json:"employee_id"`
	FarmId        int             `gorm:"not null;index" json:"farm_id"`
	Month         int             `gorm:"not null;uniqueIndex:idx_payslip_period" json:"month"`
	Year          int             `gorm:"not null;uniqueIndex:idx_payslip_period" json:"year"`
	DaysWorked    int             `gorm:"not null;default:0" json:"days_worked"`
	OvertimeHours decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"overtime_hours"`
	DailyRate     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"daily_rate"`
	HourlyRate    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"hourly_rate"`
	BaseSalary    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"base_salary"`
	OvertimePay   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"overtime_pay"`
	GrossSalary   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gross_salary"`
	CnssBase      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cnss_base"`
	CnssEmployee  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cnss_employee"`
	CnssEmployer  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cnss_employer"`
	AmoEmployee   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amo_employee"`
	AmoEmployer   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amo_employer"`
	TaxableIncome decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"taxable_income"`
	IrAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"ir_amount"`
	NetSalary     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"net_salary"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PayslipFilter struct {
	FarmId     *int `json:"farm_id"`
	EmployeeId *int `json:"employee_id"`
	Month      *int `json:"month"`
	Year       *int `json:"year"`
}

type PayrollSummary struct {
	EmployeeCount     int             `json:"employee_count"`
	TotalGross        decimal.Decimal `json:"total_gross"`
	TotalNet          decimal.Decimal `json:"total_net"`
	TotalCnssEmployer decimal.Decimal `json:"total_cnss_employer"`
	TotalAmoEmployer  decimal.Decimal `json:"total_amo_employer"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

type PayrollRun struct {
	FarmId   int            `json:"farm_id"`
	Month    int            `json:"month"`
	Year     int            `json:"year"`
	Payslips []*Payslip     `json:"payslips"`
	Summary  PayrollSummary `json:"summary"`
}

// columns rewritten when a payslip is recomputed
var payslipComputedColumns = []string{
	"tenant_id", "farm_id", "days_worked", "overtime_hours", "daily_rate", "hourly_rate",
	"base_salary", "overtime_pay", "gross_salary", "cnss_base", "cnss_employee", "cnss_employer",
	"amo_employee", "amo_employer", "taxable_income", "ir_amount", "net_salary", "updated_at",
}

func payslipLockKey(employeeId int, month int, year int) string {
	return fmt.Sprintf("payslip:%d:%d-%02d", employeeId, year, month)
}

func validatePayPeriod(month int, year int) error {
	if month < 1 || month > 12 {
		return utils.NewFieldValidationError("month", "must be between 1 and 12")
	}
	if year < 2000 {
		return utils.NewFieldValidationError("year", "must be 2000 or later")
	}
	return nil
}

// buildPayslip reads the month's attendance and runs the statutory arithmetic.
// Nothing is written.
func buildPayslip(ctx context.Context, employee *Employee, month int, year int) (*Payslip, error) {
	from, to := utils.MonthRange(year, time.Month(month))
	rows, err := employeeDirectory.ListAttendance(ctx, employee.ID, from, to)
	if err != nil {
		return nil, err
	}
	daysWorked := 0
	overtime := decimal.Zero
	for _, row := range rows {
		if !row.Status.Counts() {
			continue
		}
		daysWorked++
		overtime = overtime.Add(row.Overtime)
	}

	result, err := statutory.ComputeSalary(statutory.PayrollInput{
		DailyRate:     employee.DailyRate,
		DaysWorked:    daysWorked,
		OvertimeHours: overtime,
	})
	if err != nil {
		return nil, utils.NewValidationError("employee %d: %v", employee.ID, err)
	}

	return &Payslip{
		TenantId:      employee.TenantId,
		EmployeeId:    employee.ID,
		FarmId:        employee.FarmId,
		Month:         month,
		Year:          year,
		DaysWorked:    result.DaysWorked,
		OvertimeHours: result.OvertimeHours,
		DailyRate:     result.DailyRate,
		HourlyRate:    result.HourlyRate,
		BaseSalary:    result.BaseSalary,
		OvertimePay:   result.OvertimePay,
		GrossSalary:   result.GrossSalary,
		CnssBase:      result.CnssBase,
		CnssEmployee:  result.CnssEmployee,
		CnssEmployer:  result.CnssEmployer,
		AmoEmployee:   result.AmoEmployee,
		AmoEmployer:   result.AmoEmployer,
		TaxableIncome: result.AnnualTaxable,
		IrAmount:      result.IrAmount,
		NetSalary:     result.NetSalary,
	}, nil
}

// upsertPayslip writes p keyed on (employee, month, year) and returns the stored row.
func upsertPayslip(tx *gorm.DB, p *Payslip) (*Payslip, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns(payslipComputedColumns),
	}).Create(p).Error
	if err != nil {
		return nil, utils.TranslateDBError(err, payslipLockKey(p.EmployeeId, p.Month, p.Year), nil)
	}
	var stored Payslip
	err = tx.Where("employee_id = ? AND month = ? AND year = ?", p.EmployeeId, p.Month, p.Year).Take(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func ComputePayslip(ctx context.Context, employeeId int, month int, year int) (payslip *Payslip, err error) {
	ctx, span := startSpan(ctx, "ComputePayslip",
		attribute.Int("employee.id", employeeId), attribute.Int("payroll.month", month), attribute.Int("payroll.year", year))
	defer func() { endSpan(span, err) }()

	if err := validatePayPeriod(month, year); err != nil {
		return nil, err
	}
	employee, err := employeeDirectory.GetEmployee(ctx, employeeId)
	if err != nil {
		return nil, err
	}
	computed, err := buildPayslip(ctx, employee, month, year)
	if err != nil {
		return nil, err
	}

	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, config.GetDB(), func(tx *gorm.DB) error {
			var err error
			payslip, err = upsertPayslip(tx, computed)
			return err
		})
	}, payslipLockKey(employeeId, month, year))
	if err != nil {
		config.LogError(config.GetLogger(), "payslip.go", "ComputePayslip", "upsert payslip", employeeId, err)
		return nil, err
	}
	return payslip, nil
}

// GenerateMonthlyPayroll computes every active employee of the farm before
// writing anything; the first failure aborts the whole run.
func GenerateMonthlyPayroll(ctx context.Context, farmId int, month int, year int) (run *PayrollRun, err error) {
	ctx, span := startSpan(ctx, "GenerateMonthlyPayroll",
		attribute.Int("farm.id", farmId), attribute.Int("payroll.month", month), attribute.Int("payroll.year", year))
	defer func() { endSpan(span, err) }()

	if err := validatePayPeriod(month, year); err != nil {
		return nil, err
	}
	if _, err := farmResolver.GetFarm(ctx, farmId); err != nil {
		return nil, err
	}
	employeeIds, err := employeeDirectory.ListActiveEmployees(ctx, farmId)
	if err != nil {
		return nil, err
	}

	computed := make([]*Payslip, 0, len(employeeIds))
	keys := make([]string, 0, len(employeeIds))
	for _, id := range employeeIds {
		employee, err := employeeDirectory.GetEmployee(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("employee %d: %w", id, err)
		}
		p, err := buildPayslip(ctx, employee, month, year)
		if err != nil {
			return nil, err
		}
		computed = append(computed, p)
		keys = append(keys, payslipLockKey(id, month, year))
	}

	run = &PayrollRun{FarmId: farmId, Month: month, Year: year}
	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, config.GetDB(), func(tx *gorm.DB) error {
			stored := make([]*Payslip, 0, len(computed))
			for _, p := range computed {
				s, err := upsertPayslip(tx, p)
				if err != nil {
					return err
				}
				stored = append(stored, s)
			}
			run.Payslips = stored
			return nil
		})
	}, keys...)
	if err != nil {
		config.LogError(config.GetLogger(), "payslip.go", "GenerateMonthlyPayroll", "upsert payslips", farmId, err)
		return nil, err
	}
	run.Summary = SummarizePayroll(run.Payslips)

	config.GetLogger().WithFields(logrus.Fields{
		"field":          "GenerateMonthlyPayroll",
		"farm_id":        farmId,
		"month":          month,
		"year":           year,
		"employee_count": run.Summary.EmployeeCount,
	}).Info("payroll generated")
	return run, nil
}

func SummarizePayroll(payslips []*Payslip) PayrollSummary {
	summary := PayrollSummary{
		EmployeeCount:     len(payslips),
		TotalGross:        decimal.Zero,
		TotalNet:          decimal.Zero,
		TotalCnssEmployer: decimal.Zero,
		TotalAmoEmployer:  decimal.Zero,
	}
	for _, p := range payslips {
		summary.TotalGross = summary.TotalGross.Add(p.GrossSalary)
		summary.TotalNet = summary.TotalNet.Add(p.NetSalary)
		summary.TotalCnssEmployer = summary.TotalCnssEmployer.Add(p.CnssEmployer)
		summary.TotalAmoEmployer = summary.TotalAmoEmployer.Add(p.AmoEmployer)
	}
	summary.TotalCost = summary.TotalNet.Add(summary.TotalCnssEmployer).Add(summary.TotalAmoEmployer)
	return summary
}

func GetPayslips(ctx context.Context, filter *PayslipFilter) ([]*Payslip, error) {
	dbCtx := config.GetDB().WithContext(ctx)
	if filter != nil {
		if filter.FarmId != nil {
			dbCtx = dbCtx.Where("farm_id = ?", *filter.FarmId)
		}
		if filter.EmployeeId != nil {
			dbCtx = dbCtx.Where("employee_id = ?", *filter.EmployeeId)
		}
		if filter.Month != nil {
			dbCtx = dbCtx.Where("month = ?", *filter.Month)
		}
		if filter.Year != nil {
			dbCtx = dbCtx.Where("year = ?", *filter.Year)
		}
	}
	var payslips []*Payslip
	err := dbCtx.Order("year, month, employee_id").Find(&payslips).Error
	return payslips, err
}
