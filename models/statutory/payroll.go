package statutory

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PayrollInput is one employee-month of attendance facts.
type PayrollInput struct {
	DailyRate     decimal.Decimal
	DaysWorked    int
	OvertimeHours decimal.Decimal
}

// PayrollResult keeps every intermediate figure so callers can persist or inspect them.
type PayrollResult struct {
	DaysWorked     int
	OvertimeHours  decimal.Decimal
	DailyRate      decimal.Decimal
	HourlyRate     decimal.Decimal
	BaseSalary     decimal.Decimal
	OvertimePay    decimal.Decimal
	GrossSalary    decimal.Decimal
	CnssBase       decimal.Decimal
	CnssEmployee   decimal.Decimal
	CnssEmployer   decimal.Decimal
	AmoEmployee    decimal.Decimal
	AmoEmployer    decimal.Decimal
	AnnualTaxable  decimal.Decimal
	AnnualIncomeIr decimal.Decimal
	IrAmount       decimal.Decimal
	NetSalary      decimal.Decimal
}

var (
	ErrNegativeDailyRate = errors.New("daily rate must not be negative")
	ErrNegativeOvertime  = errors.New("overtime hours must not be negative")
	ErrNegativeDays      = errors.New("days worked must not be negative")
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func HourlyRate(dailyRate decimal.Decimal) decimal.Decimal {
	return dailyRate.Div(HoursPerDay)
}

func BaseSalary(daysWorked int, dailyRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(daysWorked)).Mul(dailyRate)
}

func OvertimePay(overtimeHours, hourlyRate decimal.Decimal) decimal.Decimal {
	return overtimeHours.Mul(hourlyRate).Mul(OvertimeMultiplier)
}

func GrossSalary(baseSalary, overtimePay decimal.Decimal) decimal.Decimal {
	return baseSalary.Add(overtimePay)
}

// CnssContributions applies the 6000 ceiling, then rounds each share.
func CnssContributions(gross decimal.Decimal) (base, employee, employer decimal.Decimal) {
	base = gross
	if base.GreaterThan(CnssCeiling) {
		base = CnssCeiling
	}
	return base, round2(base.Mul(CnssEmployeeRate)), round2(base.Mul(CnssEmployerRate))
}

// AmoContributions has no ceiling.
func AmoContributions(gross decimal.Decimal) (employee, employer decimal.Decimal) {
	return round2(gross.Mul(AmoEmployeeRate)), round2(gross.Mul(AmoEmployerRate))
}

// AnnualTaxableIncome annualizes the month and subtracts the capped frais professionnels.
func AnnualTaxableIncome(gross, cnssEmployee, amoEmployee decimal.Decimal) decimal.Decimal {
	annualGross := gross.Mul(MonthsPerYear)
	annualCnss := cnssEmployee.Mul(MonthsPerYear)
	annualAmo := amoEmployee.Mul(MonthsPerYear)
	annualFraisPro := annualGross.Mul(FraisProRate)
	if annualFraisPro.GreaterThan(FraisProAnnualCap) {
		annualFraisPro = FraisProAnnualCap
	}
	return annualGross.Sub(annualCnss).Sub(annualAmo).Sub(annualFraisPro)
}

func AnnualIncomeTax(annualTaxable decimal.Decimal) decimal.Decimal {
	b := LookupIrBracket(annualTaxable)
	ir := annualTaxable.Mul(b.Rate).Sub(b.Deduction)
	if ir.IsNegative() {
		return decimal.Zero
	}
	return ir
}

// MonthlyIncomeTax de-annualizes and rounds.
func MonthlyIncomeTax(annualIr decimal.Decimal) decimal.Decimal {
	return round2(annualIr.Div(MonthsPerYear))
}

func NetSalary(gross, cnssEmployee, amoEmployee, irAmount decimal.Decimal) decimal.Decimal {
	return round2(gross.Sub(cnssEmployee).Sub(amoEmployee).Sub(irAmount))
}

// ComputeSalary runs the monthly payroll steps in order. Rounding happens
// only inside the CNSS, AMO, monthly IR and net steps.
func ComputeSalary(in PayrollInput) (PayrollResult, error) {
	if in.DailyRate.IsNegative() {
		return PayrollResult{}, ErrNegativeDailyRate
	}
	if in.OvertimeHours.IsNegative() {
		return PayrollResult{}, ErrNegativeOvertime
	}
	if in.DaysWorked < 0 {
		return PayrollResult{}, ErrNegativeDays
	}

	r := PayrollResult{
		DaysWorked:    in.DaysWorked,
		OvertimeHours: in.OvertimeHours,
		DailyRate:     in.DailyRate,
	}
	r.HourlyRate = HourlyRate(in.DailyRate)
	r.BaseSalary = BaseSalary(in.DaysWorked, in.DailyRate)
	r.OvertimePay = OvertimePay(in.OvertimeHours, r.HourlyRate)
	r.GrossSalary = GrossSalary(r.BaseSalary, r.OvertimePay)
	r.CnssBase, r.CnssEmployee, r.CnssEmployer = CnssContributions(r.GrossSalary)
	r.AmoEmployee, r.AmoEmployer = AmoContributions(r.GrossSalary)
	r.AnnualTaxable = AnnualTaxableIncome(r.GrossSalary, r.CnssEmployee, r.AmoEmployee)
	r.AnnualIncomeIr = AnnualIncomeTax(r.AnnualTaxable)
	r.IrAmount = MonthlyIncomeTax(r.AnnualIncomeIr)
	r.NetSalary = NetSalary(r.GrossSalary, r.CnssEmployee, r.AmoEmployee, r.IrAmount)
	return r, nil
}
