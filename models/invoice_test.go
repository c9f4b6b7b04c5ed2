package models_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/models/statutory"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice_ComputesTotalsAndNumbers(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Souss")

	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)

	assert.Equal(t, "FLA-2024-00001", invoice.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, testTenant, invoice.TenantId)
	assertDecimal(t, "200", invoice.Subtotal)
	assertDecimal(t, "40", invoice.TvaAmount)
	assertDecimal(t, "240", invoice.Total)
	assertDecimal(t, "0", invoice.AmountPaid)
	assertDecimal(t, "240", invoice.AmountDue)

	stored, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assertDecimal(t, "200", stored.Lines[0].Subtotal)
	assertDecimal(t, "40", stored.Lines[0].TvaAmount)
	assertDecimal(t, "240", stored.Lines[0].Total)
	assertDecimal(t, "240", stored.AmountDue)

	second, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)
	assert.Equal(t, "FLA-2024-00002", second.InvoiceNumber)

	histories, err := models.GetHistories(ctx, models.ReferenceTypeInvoice, invoice.ID)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, models.HistoryActionCreate, histories[0].ActionType)
	assert.Equal(t, "tester@local", histories[0].Username)
}

func TestCreateInvoice_MixedRatesAndDiscount(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Gharb")

	seven := statutory.TVA_7
	ten := statutory.TVA_10
	discount := decimal.NewFromInt(10)
	input := simpleInvoiceInput(farm.ID,
		models.NewInvoiceLine{Description: "Engrais", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), TvaRate: &seven},
		models.NewInvoiceLine{Description: "Transport", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
	)
	input.TvaRate = &ten
	input.DiscountPercent = &discount

	invoice, err := models.CreateInvoice(ctx, input)
	require.NoError(t, err)

	require.Len(t, invoice.Lines, 2)
	assert.Equal(t, statutory.TVA_7, invoice.Lines[0].TvaRate)
	assert.Equal(t, statutory.TVA_10, invoice.Lines[1].TvaRate)
	assertDecimal(t, "200", invoice.Subtotal)
	assertDecimal(t, "20", invoice.DiscountAmount)
	assertDecimal(t, "17", invoice.TvaAmount)
	assertDecimal(t, "197", invoice.Total)
	assertDecimal(t, "197", invoice.AmountDue)
}

func TestCreateInvoice_NoRateAnywhereIsZeroTva(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Tadla")

	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID,
		models.NewInvoiceLine{Description: "Location tracteur", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("150.50")},
	))
	require.NoError(t, err)
	assert.Equal(t, statutory.TVA_0, invoice.Lines[0].TvaRate)
	assertDecimal(t, "451.5", invoice.Subtotal)
	assertDecimal(t, "0", invoice.TvaAmount)
	assertDecimal(t, "451.5", invoice.Total)
}

func TestCreateInvoice_Validation(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Doukkala")
	other := seedFarm(t, "tenant-b", "Ferme Voisine")

	t.Run("no lines", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID)
		input.Lines = nil
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("quantity below minimum", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID, models.NewInvoiceLine{
			Description: "Semences", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(10),
		})
		_, err := models.CreateInvoice(ctx, input)
		var verr *utils.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Contains(t, verr.Fields, "lines[0].quantity")
	})

	t.Run("quantity at the 0.01 boundary", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID, models.NewInvoiceLine{
			Description: "Semences", Quantity: decimal.RequireFromString("0.01"), UnitPrice: decimal.NewFromInt(10),
		})
		_, err := models.CreateInvoice(ctx, input)
		var verr *utils.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Contains(t, verr.Fields, "lines[0].quantity")

		input.Lines[0].Quantity = decimal.RequireFromString("0.02")
		_, err = models.CreateInvoice(ctx, input)
		assert.NoError(t, err)
	})

	t.Run("negative unit price", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID, models.NewInvoiceLine{
			Description: "Semences", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-1),
		})
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("discount above 100", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID)
		discount := decimal.NewFromInt(150)
		input.DiscountPercent = &discount
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("due date before date", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID)
		input.DueDate = input.Date.AddDate(0, 0, -1)
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID)
		input.Type = "DEVIS"
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("unknown farm", func(t *testing.T) {
		_, err := models.CreateInvoice(ctx, simpleInvoiceInput(9999))
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("farm of another tenant", func(t *testing.T) {
		_, err := models.CreateInvoice(ctx, simpleInvoiceInput(other.ID))
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("unknown client", func(t *testing.T) {
		input := simpleInvoiceInput(farm.ID)
		clientId := 4242
		input.ClientId = &clientId
		_, err := models.CreateInvoice(ctx, input)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})
}

func TestCreateInvoice_ConcurrentNumbersAreUnique(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Saiss")

	const writers = 10
	var wg sync.WaitGroup
	numbers := make(chan string, writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
			if err != nil {
				errs <- err
				return
			}
			numbers <- invoice.InvoiceNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Errorf("CreateInvoice: %v", err)
	}
	seen := make(map[string]bool)
	for n := range numbers {
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, writers)
	for i := 1; i <= writers; i++ {
		assert.True(t, seen[models.FormatInvoiceNumber(2024, i)], "missing %s", models.FormatInvoiceNumber(2024, i))
	}
}

func TestCreateInvoice_SequencePerFarmAndYear(t *testing.T) {
	ctx := setupLedgerDB(t)
	first := seedFarm(t, testTenant, "Ferme A")
	second := seedFarm(t, testTenant, "Ferme B")

	a1, err := models.CreateInvoice(ctx, simpleInvoiceInput(first.ID))
	require.NoError(t, err)
	b1, err := models.CreateInvoice(ctx, simpleInvoiceInput(second.ID))
	require.NoError(t, err)

	nextYear := simpleInvoiceInput(first.ID)
	nextYear.Date = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	nextYear.DueDate = nextYear.Date
	a2025, err := models.CreateInvoice(ctx, nextYear)
	require.NoError(t, err)

	assert.Equal(t, "FLA-2024-00001", a1.InvoiceNumber)
	assert.Equal(t, "FLA-2024-00001", b1.InvoiceNumber)
	assert.Equal(t, "FLA-2025-00001", a2025.InvoiceNumber)
}

func TestUpdateInvoiceStatus_PermissiveByDefault(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Haouz")
	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)

	updated, err := models.UpdateInvoiceStatus(ctx, invoice.ID, models.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, updated.Status)
	assert.Equal(t, invoice.Version+1, updated.Version)

	_, err = models.UpdateInvoiceStatus(ctx, invoice.ID, "ARCHIVEE")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = models.UpdateInvoiceStatus(ctx, 9999, models.InvoiceStatusSent)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	histories, err := models.GetHistories(ctx, models.ReferenceTypeInvoice, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, histories, 2)
}

func TestUpdateInvoiceStatus_StrictTransitions(t *testing.T) {
	t.Setenv("STRICT_INVOICE_TRANSITIONS", "true")
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Oriental")
	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)

	_, err = models.UpdateInvoiceStatus(ctx, invoice.ID, models.InvoiceStatusPaid)
	require.ErrorIs(t, err, utils.ErrBusinessRule)
	assert.Contains(t, err.Error(), "allowed: [VALIDEE ANNULEE EN_LITIGE]")

	for _, next := range []models.InvoiceStatus{models.InvoiceStatusValidated, models.InvoiceStatusSent, models.InvoiceStatusDisputed, models.InvoiceStatusCancelled} {
		updated, err := models.UpdateInvoiceStatus(ctx, invoice.ID, next)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	_, err = models.UpdateInvoiceStatus(ctx, invoice.ID, models.InvoiceStatusDraft)
	assert.ErrorIs(t, err, utils.ErrBusinessRule)
}

func TestListInvoices_PagesNewestFirst(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Loukkos")
	var ids []int
	for i := 0; i < 3; i++ {
		invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
		require.NoError(t, err)
		ids = append(ids, invoice.ID)
	}

	limit := 2
	page, err := models.ListInvoices(ctx, &models.InvoiceFilter{FarmId: &farm.ID}, &limit, nil)
	require.NoError(t, err)
	require.Len(t, page.Edges, 2)
	assert.Equal(t, ids[2], page.Edges[0].Node.ID)
	assert.True(t, *page.PageInfo.HasNextPage)
	assert.Len(t, page.Edges[0].Node.Lines, 1)

	after := page.PageInfo.EndCursor
	rest, err := models.ListInvoices(ctx, &models.InvoiceFilter{FarmId: &farm.ID}, &limit, &after)
	require.NoError(t, err)
	require.Len(t, rest.Edges, 1)
	assert.Equal(t, ids[0], rest.Edges[0].Node.ID)
	assert.False(t, *rest.PageInfo.HasNextPage)

	bad := "not-a-cursor"
	_, err = models.ListInvoices(ctx, nil, &limit, &bad)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestTenantIsolation_InvoiceInvisibleToOtherTenant(t *testing.T) {
	ctx := setupLedgerDB(t)
	farm := seedFarm(t, testTenant, "Ferme Privee")
	invoice, err := models.CreateInvoice(ctx, simpleInvoiceInput(farm.ID))
	require.NoError(t, err)

	_, err = models.GetInvoice(tenantContext("tenant-b"), invoice.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	page, err := models.ListInvoices(tenantContext("tenant-b"), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Edges)
}
