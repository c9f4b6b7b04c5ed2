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

type Invoice struct {
	ID              int                `gorm:"primary_key" json:"id"`
	TenantId        string             `gorm:"size:64;index;not null" json:"tenant_id"`
	FarmId          int                `gorm:"not null;uniqueIndex:idx_invoice_farm_number" json:"farm_id"`
	InvoiceNumber   string             `gorm:"size:32;not null;uniqueIndex:idx_invoice_farm_number" json:"invoice_number"`
	Type            InvoiceType        `gorm:"size:20;not null;index" json:"type"`
	ClientId        *int               `gorm:"index" json:"client_id,omitempty"`
	SupplierId      *int               `gorm:"index" json:"supplier_id,omitempty"`
	Date            time.Time          `gorm:"not null;index" json:"date"`
	DueDate         time.Time          `gorm:"not null" json:"due_date"`
	Lines           []InvoiceLine      `gorm:"foreignKey:InvoiceId" json:"lines"`
	Subtotal        decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	DiscountPercent decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"discount_amount"`
	TvaRate         *statutory.TvaRate `gorm:"size:10" json:"tva_rate,omitempty"`
	TvaAmount       decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"tva_amount"`
	Total           decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	AmountPaid      decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"amount_paid"`
	AmountDue       decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"amount_due"`
	Status          InvoiceStatus      `gorm:"size:30;not null;index" json:"status"`
	Notes           string             `gorm:"type:text" json:"notes"`
	Version         int                `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type InvoiceLine struct {
	ID          int               `gorm:"primary_key" json:"id"`
	InvoiceId   int               `gorm:"index;not null" json:"invoice_id"`
	Description string            `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Unit        string            `gorm:"size:20" json:"unit"`
	UnitPrice   decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TvaRate     statutory.TvaRate `gorm:"size:10;not null" json:"tva_rate"`
	Subtotal    decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TvaAmount   decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"tva_amount"`
	Total       decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"total"`
	SortOrder   int               `gorm:"not null;default:0" json:"sort_order"`
}

type NewInvoice struct {
	FarmId          int                `json:"farm_id" validate:"required,gt=0"`
	Type            InvoiceType        `json:"type" validate:"required,oneof=FACTURE_VENTE FACTURE_ACHAT AVOIR PROFORMA"`
	Date            time.Time          `json:"date"`
	DueDate         time.Time          `json:"due_date"`
	Lines           []NewInvoiceLine   `json:"lines" validate:"required,min=1,dive"`
	DiscountPercent *decimal.Decimal   `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	TvaRate         *statutory.TvaRate `json:"tva_rate" validate:"omitempty,oneof=TVA_0 TVA_7 TVA_10 TVA_14 TVA_20"`
	ClientId        *int               `json:"client_id" validate:"omitempty,gt=0"`
	SupplierId      *int               `json:"supplier_id" validate:"omitempty,gt=0"`
	Notes           string             `json:"notes" validate:"max=2000"`
}

type NewInvoiceLine struct {
	Description string             `json:"description" validate:"required,max=255"`
	Quantity    decimal.Decimal    `json:"quantity" validate:"gt=0.01"`
	Unit        string             `json:"unit" validate:"max=20"`
	UnitPrice   decimal.Decimal    `json:"unit_price" validate:"gte=0"`
	TvaRate     *statutory.TvaRate `json:"tva_rate" validate:"omitempty,oneof=TVA_0 TVA_7 TVA_10 TVA_14 TVA_20"`
}

type InvoiceFilter struct {
	FarmId     *int           `json:"farm_id"`
	Type       *InvoiceType   `json:"type"`
	Status     *InvoiceStatus `json:"status"`
	ClientId   *int           `json:"client_id"`
	SupplierId *int           `json:"supplier_id"`
	FromDate   *time.Time     `json:"from_date"`
	ToDate     *time.Time     `json:"to_date"`
}

func (inv Invoice) GetId() int {
	return inv.ID
}

func invoiceLockKey(invoiceId int) string {
	return fmt.Sprintf("invoice:%d", invoiceId)
}

func validateNewInvoice(input *NewInvoice) error {
	if input == nil {
		return utils.NewValidationError("invoice input is required")
	}
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if input.Date.IsZero() {
		return utils.NewFieldValidationError("date", "required")
	}
	if input.DueDate.IsZero() {
		return utils.NewFieldValidationError("due_date", "required")
	}
	if utils.DateOnly(input.DueDate).Before(utils.DateOnly(input.Date)) {
		return utils.NewFieldValidationError("due_date", "must not be before date")
	}
	return nil
}

// computeInvoice builds lines and aggregates. Line figures are rounded to the
// storage scale; aggregates are sums of the rounded line figures.
func computeInvoice(input *NewInvoice) (*Invoice, error) {
	invoice := &Invoice{
		FarmId:     input.FarmId,
		Type:       input.Type,
		ClientId:   input.ClientId,
		SupplierId: input.SupplierId,
		Date:       utils.DateOnly(input.Date),
		DueDate:    utils.DateOnly(input.DueDate),
		TvaRate:    input.TvaRate,
		Notes:      input.Notes,
		Status:     InvoiceStatusDraft,
		Version:    1,
	}

	subtotal := decimal.Zero
	tvaAmount := decimal.Zero
	for i, in := range input.Lines {
		rate := statutory.ResolveTvaRate(in.TvaRate, input.TvaRate)
		fraction, err := rate.Fraction()
		if err != nil {
			return nil, utils.NewFieldValidationError(fmt.Sprintf("lines[%d].tva_rate", i), err.Error())
		}
		lineSubtotal := utils.RoundMoney(in.Quantity.Mul(in.UnitPrice))
		lineTva := utils.RoundMoney(lineSubtotal.Mul(fraction))
		invoice.Lines = append(invoice.Lines, InvoiceLine{
			Description: in.Description,
			Quantity:    in.Quantity,
			Unit:        in.Unit,
			UnitPrice:   in.UnitPrice,
			TvaRate:     rate,
			Subtotal:    lineSubtotal,
			TvaAmount:   lineTva,
			Total:       lineSubtotal.Add(lineTva),
			SortOrder:   i,
		})
		subtotal = subtotal.Add(lineSubtotal)
		tvaAmount = tvaAmount.Add(lineTva)
	}

	discountPercent := utils.DereferencePtr(input.DiscountPercent, decimal.Zero)
	invoice.Subtotal = subtotal
	invoice.DiscountPercent = discountPercent
	invoice.DiscountAmount = utils.RoundMoney(subtotal.Mul(discountPercent).Div(utils.DecimalOneHundred))
	invoice.TvaAmount = tvaAmount
	invoice.Total = subtotal.Sub(invoice.DiscountAmount).Add(tvaAmount)
	invoice.AmountPaid = decimal.Zero
	invoice.AmountDue = invoice.Total
	return invoice, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (invoice *Invoice, err error) {
	ctx, span := startSpan(ctx, "CreateInvoice")
	defer func() { endSpan(span, err) }()

	if err := validateNewInvoice(input); err != nil {
		return nil, err
	}
	farm, err := farmResolver.GetFarm(ctx, input.FarmId)
	if err != nil {
		return nil, err
	}
	if input.ClientId != nil {
		if _, err := partyDirectory.GetClient(ctx, *input.ClientId); err != nil {
			return nil, err
		}
	}
	if input.SupplierId != nil {
		if _, err := partyDirectory.GetSupplier(ctx, *input.SupplierId); err != nil {
			return nil, err
		}
	}

	invoice, err = computeInvoice(input)
	if err != nil {
		return nil, err
	}
	invoice.TenantId = farm.TenantId
	year := invoice.Date.Year()
	span.SetAttributes(attribute.Int("farm.id", farm.ID), attribute.Int("invoice.year", year))

	db := config.GetDB()
	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, db, func(tx *gorm.DB) error {
			number, err := nextInvoiceNumber(tx, farm, year)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
			if err := tx.Create(invoice).Error; err != nil {
				return utils.TranslateDBError(err, "invoice number "+number, nil)
			}
			description := fmt.Sprintf("Invoice %s created for %v.", number, invoice.Total)
			return saveHistoryCreate(tx, invoice.TenantId, invoice.ID, ReferenceTypeInvoice, invoice, description)
		})
	}, invoiceNumberLockKey(farm.ID, year))
	if err != nil {
		config.LogError(config.GetLogger(), "invoice.go", "CreateInvoice", "persist invoice", input, err)
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"field":          "CreateInvoice",
		"farm_id":        farm.ID,
		"invoice_id":     invoice.ID,
		"invoice_number": invoice.InvoiceNumber,
	}).Info("invoice created")
	return invoice, nil
}

// UpdateInvoiceStatus overwrites the status. Any known status is accepted
// unless STRICT_INVOICE_TRANSITIONS is on.
func UpdateInvoiceStatus(ctx context.Context, invoiceId int, status InvoiceStatus) (invoice *Invoice, err error) {
	ctx, span := startSpan(ctx, "UpdateInvoiceStatus", attribute.Int("invoice.id", invoiceId))
	defer func() { endSpan(span, err) }()

	if !status.IsValid() {
		return nil, utils.NewFieldValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	db := config.GetDB()
	err = utils.WithLock(ctx, func() error {
		return utils.RunInTransaction(ctx, db, func(tx *gorm.DB) error {
			current, err := lockInvoice(tx, invoiceId)
			if err != nil {
				return err
			}
			if config.StrictInvoiceTransitions() && !current.Status.CanTransition(status) {
				return utils.NewBusinessRuleError("invoice %s cannot move from %s to %s (allowed: %v)",
					current.InvoiceNumber, current.Status, status, current.Status.AllowedTransitions())
			}
			previous := current.Status
			if err := saveInvoiceState(tx, current, map[string]interface{}{"status": status}); err != nil {
				return err
			}
			current.Status = status
			description := fmt.Sprintf("Invoice %s status %s -> %s.", current.InvoiceNumber, previous, status)
			if err := saveHistoryUpdate(tx, current.TenantId, current.ID, ReferenceTypeInvoice,
				map[string]interface{}{"status": previous}, map[string]interface{}{"status": status}, description); err != nil {
				return err
			}
			invoice = current
			return nil
		})
	}, invoiceLockKey(invoiceId))
	if err != nil {
		return nil, err
	}
	return GetInvoice(ctx, invoice.ID)
}

// lockInvoice re-reads the invoice inside tx with a row lock.
func lockInvoice(tx *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, invoiceId).Error
	if err != nil {
		return nil, utils.TranslateDBError(err, "invoice", invoiceId)
	}
	return &invoice, nil
}

// saveInvoiceState writes fields with an optimistic version check and bumps the version.
func saveInvoiceState(tx *gorm.DB, invoice *Invoice, fields map[string]interface{}) error {
	fields["version"] = invoice.Version + 1
	res := tx.Model(&Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.NewConcurrencyConflictError(invoiceLockKey(invoice.ID), nil)
	}
	invoice.Version++
	return nil
}

func preloadOrderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order")
}

func GetInvoice(ctx context.Context, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	err := config.GetDB().WithContext(ctx).
		Preload("Lines", preloadOrderedLines).
		First(&invoice, invoiceId).Error
	if err != nil {
		return nil, utils.TranslateDBError(err, "invoice", invoiceId)
	}
	return &invoice, nil
}

func ListInvoices(ctx context.Context, filter *InvoiceFilter, limit *int, after *string) (*Connection[Invoice], error) {
	dbCtx := config.GetDB().WithContext(ctx).Preload("Lines", preloadOrderedLines)
	if filter != nil {
		if filter.FarmId != nil {
			dbCtx = dbCtx.Where("farm_id = ?", *filter.FarmId)
		}
		if filter.Type != nil {
			dbCtx = dbCtx.Where("type = ?", *filter.Type)
		}
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.ClientId != nil {
			dbCtx = dbCtx.Where("client_id = ?", *filter.ClientId)
		}
		if filter.SupplierId != nil {
			dbCtx = dbCtx.Where("supplier_id = ?", *filter.SupplierId)
		}
		if filter.FromDate != nil {
			dbCtx = dbCtx.Where("date >= ?", utils.DateOnly(*filter.FromDate))
		}
		if filter.ToDate != nil {
			dbCtx = dbCtx.Where("date < ?", utils.DateOnly(*filter.ToDate).AddDate(0, 0, 1))
		}
	}
	return FetchPageById[Invoice](dbCtx, limit, after)
}
