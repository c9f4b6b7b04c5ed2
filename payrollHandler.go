package main

import (
	"context"
	"net/http"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/gin-gonic/gin"
)

type computePayslipRequest struct {
	EmployeeId int `json:"employee_id"`
	Month      int `json:"month"`
	Year       int `json:"year"`
}

type payrollRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func computePayslipHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req computePayslipRequest
		if !bindJSON(c, &req) {
			return
		}
		payslip, ok := runWrite(c, func(ctx context.Context) (*models.Payslip, error) {
			return models.ComputePayslip(ctx, req.EmployeeId, req.Month, req.Year)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, payslip)
	}
}

func generatePayrollHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "farmId")
		if !ok {
			return
		}
		var req payrollRequest
		if !bindJSON(c, &req) {
			return
		}
		run, ok := runWrite(c, func(ctx context.Context) (*models.PayrollRun, error) {
			return models.GenerateMonthlyPayroll(ctx, farmId, req.Month, req.Year)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func listPayslipsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.PayslipFilter
		var err error
		for name, dest := range map[string]**int{
			"farm_id":     &filter.FarmId,
			"employee_id": &filter.EmployeeId,
			"month":       &filter.Month,
			"year":        &filter.Year,
		} {
			if *dest, err = queryInt(c, name); err != nil {
				respondError(c, err)
				return
			}
		}
		payslips, err := models.GetPayslips(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payslips)
	}
}
