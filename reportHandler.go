package main

import (
	"net/http"
	"time"

	"github.com/fla-erp/ledger_backend/models/reports"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/fla-erp/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

type reconcileRequest struct {
	TenantId string `json:"tenant_id"`
}

func profitAndLossHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "farmId")
		if !ok {
			return
		}
		year, err := queryInt(c, "year")
		if err != nil {
			respondError(c, err)
			return
		}
		report, err := reports.MonthlyProfitAndLoss(c.Request.Context(), farmId,
			utils.DereferencePtr(year, time.Now().UTC().Year()))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func cropCycleReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "farmId")
		if !ok {
			return
		}
		from, err := requiredQueryDate(c, "from")
		if err != nil {
			respondError(c, err)
			return
		}
		to, err := requiredQueryDate(c, "to")
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := reports.CropCycleProfitability(c.Request.Context(), farmId, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func reconcileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reconcileRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := workflow.RunLedgerReconciliation(c.Request.Context(), nil, req.TenantId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
