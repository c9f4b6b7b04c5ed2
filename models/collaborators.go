package models

import (
	"context"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Read models owned by the farm/HR/party services. This package never writes them.

type Farm struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"size:64;index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Employee struct {
	ID          int              `gorm:"primary_key" json:"id"`
	TenantId    string           `gorm:"size:64;index;not null" json:"tenant_id"`
	FarmId      int              `gorm:"index;not null" json:"farm_id"`
	FirstName   string           `gorm:"size:100" json:"first_name"`
	LastName    string           `gorm:"size:100" json:"last_name"`
	DailyRate   decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"daily_rate"`
	MonthlyRate *decimal.Decimal `gorm:"type:decimal(20,4)" json:"monthly_rate,omitempty"`
	IsActive    *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type Attendance struct {
	ID          int              `gorm:"primary_key" json:"id"`
	TenantId    string           `gorm:"size:64;index;not null" json:"tenant_id"`
	EmployeeId  int              `gorm:"index:idx_attendance_employee_date;not null" json:"employee_id"`
	Date        time.Time        `gorm:"index:idx_attendance_employee_date;not null" json:"date"`
	Status      AttendanceStatus `gorm:"size:20;not null" json:"status"`
	HoursWorked decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"hours_worked"`
	Overtime    decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"overtime"`
}

type Client struct {
	ID       int    `gorm:"primary_key" json:"id"`
	TenantId string `gorm:"size:64;index;not null" json:"tenant_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

type Supplier struct {
	ID       int    `gorm:"primary_key" json:"id"`
	TenantId string `gorm:"size:64;index;not null" json:"tenant_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// FarmResolver answers ownership checks.
type FarmResolver interface {
	GetFarm(ctx context.Context, id int) (*Farm, error)
}

// EmployeeDirectory reads employees and their attendance.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id int) (*Employee, error)
	// ListAttendance returns rows with from <= date < to.
	ListAttendance(ctx context.Context, employeeId int, from time.Time, to time.Time) ([]*Attendance, error)
	ListActiveEmployees(ctx context.Context, farmId int) ([]int, error)
}

// PartyDirectory is display-only.
type PartyDirectory interface {
	GetClient(ctx context.Context, id int) (*Client, error)
	GetSupplier(ctx context.Context, id int) (*Supplier, error)
}

var (
	farmResolver      FarmResolver      = dbDirectory{}
	employeeDirectory EmployeeDirectory = dbDirectory{}
	partyDirectory    PartyDirectory    = dbDirectory{}
)

// Replace the table-backed collaborators, e.g. with service clients.
func SetFarmResolver(r FarmResolver)           { farmResolver = r }
func SetEmployeeDirectory(d EmployeeDirectory) { employeeDirectory = d }
func SetPartyDirectory(d PartyDirectory)       { partyDirectory = d }

// dbDirectory reads the shared tables directly.
type dbDirectory struct{}

func (dbDirectory) GetFarm(ctx context.Context, id int) (*Farm, error) {
	farm, exists, err := utils.GetRedis[Farm](id)
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"field":   "GetFarm",
			"farm_id": id,
		}).Warn("farm cache read failed: " + err.Error())
	}
	if !exists {
		farm, err = utils.FetchModel[Farm](ctx, config.GetDB(), "farm", id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis(farm, id); err != nil {
			config.LogError(config.GetLogger(), "collaborators.go", "GetFarm", "StoreRedis", id, err)
		}
	}
	// cached farms skip the DB tenant scope
	if tenantId, ok := utils.GetTenantIdFromContext(ctx); ok && tenantId != "" && farm.TenantId != tenantId {
		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
			return nil, utils.NewNotFoundError("farm", id)
		}
	}
	return farm, nil
}

func (dbDirectory) GetEmployee(ctx context.Context, id int) (*Employee, error) {
	return utils.FetchModel[Employee](ctx, config.GetDB(), "employee", id)
}

func (dbDirectory) ListAttendance(ctx context.Context, employeeId int, from time.Time, to time.Time) ([]*Attendance, error) {
	var rows []*Attendance
	err := config.GetDB().WithContext(ctx).
		Where("employee_id = ? AND date >= ? AND date < ?", employeeId, from, to).
		Order("date").
		Find(&rows).Error
	return rows, err
}

func (dbDirectory) ListActiveEmployees(ctx context.Context, farmId int) ([]int, error) {
	var ids []int
	err := config.GetDB().WithContext(ctx).Model(&Employee{}).
		Where("farm_id = ? AND is_active = ?", farmId, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (dbDirectory) GetClient(ctx context.Context, id int) (*Client, error) {
	return utils.FetchModel[Client](ctx, config.GetDB(), "client", id)
}

func (dbDirectory) GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, config.GetDB(), "supplier", id)
}
