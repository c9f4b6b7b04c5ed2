package main

import (
	"context"
	"net/http"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/gin-gonic/gin"
)

type invoiceStatusRequest struct {
	Status models.InvoiceStatus `json:"status"`
}

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if !bindJSON(c, &input) {
			return
		}
		invoice, ok := runWrite(c, func(ctx context.Context) (*models.Invoice, error) {
			return models.CreateInvoice(ctx, &input)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.InvoiceFilter
		var err error
		if filter.FarmId, err = queryInt(c, "farm_id"); err != nil {
			respondError(c, err)
			return
		}
		if filter.ClientId, err = queryInt(c, "client_id"); err != nil {
			respondError(c, err)
			return
		}
		if filter.SupplierId, err = queryInt(c, "supplier_id"); err != nil {
			respondError(c, err)
			return
		}
		if filter.FromDate, err = queryDate(c, "from"); err != nil {
			respondError(c, err)
			return
		}
		if filter.ToDate, err = queryDate(c, "to"); err != nil {
			respondError(c, err)
			return
		}
		if v := queryString(c, "type"); v != nil {
			t := models.InvoiceType(*v)
			filter.Type = &t
		}
		if v := queryString(c, "status"); v != nil {
			s := models.InvoiceStatus(*v)
			filter.Status = &s
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			respondError(c, err)
			return
		}
		page, err := models.ListInvoices(c.Request.Context(), &filter, limit, queryString(c, "after"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func updateInvoiceStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req invoiceStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		invoice, ok := runWrite(c, func(ctx context.Context) (*models.Invoice, error) {
			return models.UpdateInvoiceStatus(ctx, id, req.Status)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func applyPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, ok := runWrite(c, func(ctx context.Context) (*models.Payment, error) {
			return models.ApplyPayment(ctx, id, &input)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func listInvoicePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		payments, err := models.GetInvoicePayments(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}
