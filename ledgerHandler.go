package main

import (
	"context"
	"net/http"
	"time"

	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/gin-gonic/gin"
)

func createBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBankAccount
		if !bindJSON(c, &input) {
			return
		}
		account, ok := runWrite(c, func(ctx context.Context) (*models.BankAccount, error) {
			return models.CreateBankAccount(ctx, &input)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func getBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		account, err := models.GetBankAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listBankAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "farmId")
		if !ok {
			return
		}
		accounts, err := models.ListBankAccounts(c.Request.Context(), farmId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func recordTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewTransaction
		if !bindJSON(c, &input) {
			return
		}
		txn, ok := runWrite(c, func(ctx context.Context) (*models.Transaction, error) {
			return models.RecordTransaction(ctx, id, &input)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, txn)
	}
}

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TransactionFilter
		var err error
		if filter.BankAccountId, err = queryInt(c, "bank_account_id"); err != nil {
			respondError(c, err)
			return
		}
		if filter.FarmId, err = queryInt(c, "farm_id"); err != nil {
			respondError(c, err)
			return
		}
		if filter.CropCycleId, err = queryInt(c, "crop_cycle_id"); err != nil {
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
			t := models.TransactionType(*v)
			filter.Type = &t
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			respondError(c, err)
			return
		}
		page, err := models.ListTransactions(c.Request.Context(), &filter, limit, queryString(c, "after"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// accountScope reads either account_ids=1,2 or farm_id (every account of the farm).
func accountScope(c *gin.Context) ([]int, error) {
	ids, err := queryIntList(c, "account_ids")
	if err != nil || len(ids) > 0 {
		return ids, err
	}
	farmId, err := queryInt(c, "farm_id")
	if err != nil {
		return nil, err
	}
	if farmId == nil {
		return nil, utils.NewFieldValidationError("account_ids", "account_ids or farm_id is required")
	}
	accounts, err := models.ListBankAccounts(c.Request.Context(), *farmId)
	if err != nil {
		return nil, err
	}
	return models.BankAccountIds(accounts), nil
}

func sumByPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := accountScope(c)
		if err != nil {
			respondError(c, err)
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
		txType := models.TransactionType(c.Query("type"))
		total, err := models.SumByPeriod(c.Request.Context(), ids, txType, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": txType, "from": from, "to": to, "total": total})
	}
}

func monthlyBucketsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := accountScope(c)
		if err != nil {
			respondError(c, err)
			return
		}
		months, err := queryInt(c, "months")
		if err != nil {
			respondError(c, err)
			return
		}
		asOf, err := queryDate(c, "as_of")
		if err != nil {
			respondError(c, err)
			return
		}
		buckets, err := models.MonthlyBuckets(c.Request.Context(), ids,
			utils.DereferencePtr(months, 12), utils.DereferencePtr(asOf, time.Now().UTC()))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, buckets)
	}
}
