package models_test

import (
	"testing"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePayslip_MonthWithOvertime(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Berkane")
	emp := seedEmployee(t, farm, "200")
	seedAttendance(t, emp, 2024, time.March, 1, 22, models.AttendanceStatusPresent, 10)
	// not paid
	seedAttendance(t, emp, 2024, time.March, 25, 1, models.AttendanceStatusAbsent, 0)
	seedAttendance(t, emp, 2024, time.March, 26, 2, models.AttendanceStatusLeave, 0)
	seedAttendance(t, emp, 2024, time.March, 28, 1, models.AttendanceStatusSick, 0)
	// other months
	seedAttendance(t, emp, 2024, time.February, 1, 5, models.AttendanceStatusPresent, 5)
	seedAttendance(t, emp, 2024, time.April, 1, 5, models.AttendanceStatusPresent, 5)

	p, err := models.ComputePayslip(ctx, emp.ID, 3, 2024)
	require.NoError(t, err)

	assert.Equal(t, 22, p.DaysWorked)
	assert.Equal(t, farm.ID, p.FarmId)
	assert.Equal(t, testTenant, p.TenantId)
	assertDecimal(t, "10", p.OvertimeHours)
	assertDecimal(t, "25", p.HourlyRate)
	assertDecimal(t, "4400", p.BaseSalary)
	assertDecimal(t, "312.5", p.OvertimePay)
	assertDecimal(t, "4712.5", p.GrossSalary)
	assertDecimal(t, "4712.5", p.CnssBase)
	assertDecimal(t, "211.12", p.CnssEmployee)
	assertDecimal(t, "423.18", p.CnssEmployer)
	assertDecimal(t, "106.5", p.AmoEmployee)
	assertDecimal(t, "193.68", p.AmoEmployer)
	assertDecimal(t, "41428.56", p.TaxableIncome)
	assertDecimal(t, "95.24", p.IrAmount)
	assertDecimal(t, "4299.64", p.NetSalary)
}

func TestComputePayslip_HalfDayCountsAsDay(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Taza")
	emp := seedEmployee(t, farm, "100")
	seedAttendance(t, emp, 2024, time.May, 1, 2, models.AttendanceStatusPresent, 0)
	seedAttendance(t, emp, 2024, time.May, 3, 1, models.AttendanceStatusHalfDay, 0)

	p, err := models.ComputePayslip(ctx, emp.ID, 5, 2024)
	require.NoError(t, err)
	assert.Equal(t, 3, p.DaysWorked)
	assertDecimal(t, "300", p.GrossSalary)
}

func TestComputePayslip_NoAttendanceIsZeroPayslip(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Ifrane")
	emp := seedEmployee(t, farm, "180")

	p, err := models.ComputePayslip(ctx, emp.ID, 7, 2024)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, 0, p.DaysWorked)
	assertDecimal(t, "0", p.GrossSalary)
	assertDecimal(t, "0", p.IrAmount)
	assertDecimal(t, "0", p.NetSalary)
}

func TestComputePayslip_RecomputeOverwrites(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Azrou")
	emp := seedEmployee(t, farm, "100")
	seedAttendance(t, emp, 2024, time.June, 1, 20, models.AttendanceStatusPresent, 0)

	first, err := models.ComputePayslip(ctx, emp.ID, 6, 2024)
	require.NoError(t, err)
	again, err := models.ComputePayslip(ctx, emp.ID, 6, 2024)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.DaysWorked, again.DaysWorked)
	for name, pair := range map[string][2]decimal.Decimal{
		"gross":  {first.GrossSalary, again.GrossSalary},
		"cnss":   {first.CnssEmployee, again.CnssEmployee},
		"amo":    {first.AmoEmployee, again.AmoEmployee},
		"ir":     {first.IrAmount, again.IrAmount},
		"net":    {first.NetSalary, again.NetSalary},
		"income": {first.TaxableIncome, again.TaxableIncome},
	} {
		assert.True(t, pair[0].Equal(pair[1]), name)
	}
	assertDecimal(t, "1865.2", again.NetSalary)

	// late attendance entry, then recompute
	seedAttendance(t, emp, 2024, time.June, 21, 2, models.AttendanceStatusPresent, 0)
	updated, err := models.ComputePayslip(ctx, emp.ID, 6, 2024)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, 22, updated.DaysWorked)
	assertDecimal(t, "2200", updated.GrossSalary)

	payslips, err := models.GetPayslips(ctx, &models.PayslipFilter{EmployeeId: &emp.ID})
	require.NoError(t, err)
	assert.Len(t, payslips, 1)
}

func TestComputePayslip_Validation(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Khenifra")
	emp := seedEmployee(t, farm, "100")

	_, err := models.ComputePayslip(ctx, emp.ID, 13, 2024)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = models.ComputePayslip(ctx, emp.ID, 0, 2024)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = models.ComputePayslip(ctx, emp.ID, 1, 1999)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = models.ComputePayslip(ctx, 9999, 1, 2024)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestGenerateMonthlyPayroll_Summary(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Meknes")
	worker := seedEmployee(t, farm, "200")
	seedAttendance(t, worker, 2024, time.March, 1, 22, models.AttendanceStatusPresent, 10)
	helper := seedEmployee(t, farm, "100")
	seedAttendance(t, helper, 2024, time.March, 1, 20, models.AttendanceStatusPresent, 0)

	inactive := &models.Employee{
		TenantId:  testTenant,
		FarmId:    farm.ID,
		FirstName: "Ancien",
		DailyRate: decimal.NewFromInt(150),
		IsActive:  utils.NewFalse(),
	}
	require.NoError(t, config.GetDB().Create(inactive).Error)
	seedAttendance(t, inactive, 2024, time.March, 1, 10, models.AttendanceStatusPresent, 0)

	run, err := models.GenerateMonthlyPayroll(ctx, farm.ID, 3, 2024)
	require.NoError(t, err)

	require.Len(t, run.Payslips, 2)
	assert.Equal(t, 2, run.Summary.EmployeeCount)
	assertDecimal(t, "6712.5", run.Summary.TotalGross)
	assertDecimal(t, "6164.84", run.Summary.TotalNet)
	assertDecimal(t, "602.78", run.Summary.TotalCnssEmployer)
	assertDecimal(t, "275.88", run.Summary.TotalAmoEmployer)
	assertDecimal(t, "7043.5", run.Summary.TotalCost)

	month, year := 3, 2024
	stored, err := models.GetPayslips(ctx, &models.PayslipFilter{FarmId: &farm.ID, Month: &month, Year: &year})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	rerun, err := models.GenerateMonthlyPayroll(ctx, farm.ID, 3, 2024)
	require.NoError(t, err)
	assert.Equal(t, run.Summary.TotalCost.String(), rerun.Summary.TotalCost.String())
	stored, err = models.GetPayslips(ctx, &models.PayslipFilter{FarmId: &farm.ID})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGenerateMonthlyPayroll_FailFast(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Settat")
	good := seedEmployee(t, farm, "100")
	seedAttendance(t, good, 2024, time.March, 1, 5, models.AttendanceStatusPresent, 0)
	bad := seedEmployee(t, farm, "-50")
	seedAttendance(t, bad, 2024, time.March, 1, 5, models.AttendanceStatusPresent, 0)

	_, err := models.GenerateMonthlyPayroll(ctx, farm.ID, 3, 2024)
	require.ErrorIs(t, err, utils.ErrValidation)

	stored, err := models.GetPayslips(ctx, &models.PayslipFilter{FarmId: &farm.ID})
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = models.GenerateMonthlyPayroll(ctx, 9999, 3, 2024)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
