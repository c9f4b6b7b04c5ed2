package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/models"
	"github.com/fla-erp/ledger_backend/utils"
	"github.com/fla-erp/ledger_backend/workflow"
)

func main() {
	now := time.Now().UTC()
	tenantID := flag.String("tenant-id", "", "Tenant to run payroll for (required).")
	farms := flag.String("farms", "", "Optional: comma separated farm ids. If empty, runs every farm of the tenant.")
	month := flag.Int("month", int(now.Month()), "Pay period month (1-12).")
	year := flag.Int("year", now.Year(), "Pay period year.")
	flag.Parse()

	tenant := strings.TrimSpace(*tenantID)
	if tenant == "" {
		fmt.Fprintln(os.Stderr, "-tenant-id is required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetTenantIdInContext(context.Background(), tenant)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUsernameInContext(ctx, "PayrollRun")

	var farmIds []int
	if strings.TrimSpace(*farms) != "" {
		for _, raw := range strings.Split(*farms, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || id <= 0 {
				fmt.Fprintf(os.Stderr, "invalid farm id %q\n", raw)
				os.Exit(2)
			}
			farmIds = append(farmIds, id)
		}
	} else if err := db.WithContext(ctx).Model(&models.Farm{}).
		Where("tenant_id = ?", tenant).
		Order("id").Pluck("id", &farmIds).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list farms: %v\n", err)
		os.Exit(1)
	}
	if len(farmIds) == 0 {
		fmt.Fprintln(os.Stderr, "no farms found to run")
		return
	}

	fmt.Printf("Running payroll tenant=%s period=%04d-%02d farms=%v\n", tenant, *year, *month, farmIds)
	outcomes := workflow.RunMonthlyPayroll(ctx, config.GetLogger(), farmIds, *month, *year)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(outcomes)

	if failed := workflow.FailedFarms(outcomes); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d farms failed\n", failed, len(outcomes))
		os.Exit(1)
	}
}
