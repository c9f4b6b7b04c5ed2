package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/models/statutory"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testTenant = "tenant-a"

// setupLedgerDB points the package at a fresh in-memory sqlite database with
// every table migrated, and returns a request context for testTenant.
func setupLedgerDB(t *testing.T) context.Context {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)
	previous := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(previous)
	})

	models.MigrateTable()
	models.MigrateReadModels()
	return tenantContext(testTenant)
}

func tenantContext(tenantId string) context.Context {
	ctx := context.Background()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, "tester@local")
	return ctx
}

func seedFarm(t *testing.T, tenantId string, name string) *models.Farm {
	t.Helper()
	farm := &models.Farm{TenantId: tenantId, Name: name}
	require.NoError(t, config.GetDB().Create(farm).Error)
	return farm
}

func seedEmployee(t *testing.T, farm *models.Farm, dailyRate string) *models.Employee {
	t.Helper()
	emp := &models.Employee{
		TenantId:  farm.TenantId,
		FarmId:    farm.ID,
		FirstName: "Youssef",
		LastName:  "Amrani",
		DailyRate: decimal.RequireFromString(dailyRate),
	}
	require.NoError(t, config.GetDB().Create(emp).Error)
	return emp
}

// seedAttendance writes one row per day starting on firstDay; overtime is
// spread on the first rows, one hour each.
func seedAttendance(t *testing.T, emp *models.Employee, year int, month time.Month, firstDay int, days int, status models.AttendanceStatus, overtimeHours int) {
	t.Helper()
	for i := 0; i < days; i++ {
		overtime := decimal.Zero
		if i < overtimeHours {
			overtime = decimal.NewFromInt(1)
		}
		row := &models.Attendance{
			TenantId:    emp.TenantId,
			EmployeeId:  emp.ID,
			Date:        time.Date(year, month, firstDay+i, 0, 0, 0, 0, time.UTC),
			Status:      status,
			HoursWorked: decimal.NewFromInt(8),
			Overtime:    overtime,
		}
		require.NoError(t, config.GetDB().Create(row).Error)
	}
}

func seedBankAccount(t *testing.T, ctx context.Context, farm *models.Farm) *models.BankAccount {
	t.Helper()
	account, err := models.CreateBankAccount(ctx, &models.NewBankAccount{
		FarmId:   farm.ID,
		Name:     "Compte courant",
		BankName: "Banque Populaire",
	})
	require.NoError(t, err)
	return account
}

func simpleInvoiceInput(farmId int, lines ...models.NewInvoiceLine) *models.NewInvoice {
	if len(lines) == 0 {
		rate := statutory.TVA_20
		lines = []models.NewInvoiceLine{{
			Description: "Tomates",
			Quantity:    decimal.NewFromInt(10),
			Unit:        "kg",
			UnitPrice:   decimal.NewFromInt(20),
			TvaRate:     &rate,
		}}
	}
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	return &models.NewInvoice{
		FarmId:  farmId,
		Type:    models.InvoiceTypeSale,
		Date:    date,
		DueDate: date.AddDate(0, 0, 30),
		Lines:   lines,
	}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual),
		append([]interface{}{fmt.Sprintf("expected %s, got %s", expected, actual.String())}, msgAndArgs...)...)
}
