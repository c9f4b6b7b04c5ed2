package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fla-erp/ledger_backend/config"
	"github.com/fla-erp/ledger_backend/utils"
	"gorm.io/gorm"
)

// History is the audit trail of every ledger mutation.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TenantId      string    `gorm:"size:64;index;not null" json:"tenant_id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index:idx_history_reference" json:"reference_id"`
	ReferenceType string    `gorm:"size:50;index:idx_history_reference" json:"reference_type"`
	UserId        int       `gorm:"index;not null;default:0" json:"user_id"`
	Username      string    `gorm:"size:100" json:"username"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	HistoryActionCreate = "CREATE"
	HistoryActionUpdate = "UPDATE"
)

func createHistory(tx *gorm.DB,
	tenantId string,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, _ := utils.GetUserIdFromContext(ctx)
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		username = "System"
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)

	history.TenantId = tenantId
	history.ActionType = actionType
	if before != nil {
		history.Before = string(b)
	}
	if after != nil {
		history.After = string(a)
	}
	history.Description = description
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.Username = username
	history.CorrelationId = cid

	return tx.Create(&history).Error
}

func saveHistoryCreate(tx *gorm.DB, tenantId string, id int, referenceType string, obj interface{}, description string) error {
	return createHistory(tx, tenantId, HistoryActionCreate, id, referenceType, nil, obj, description)
}

func saveHistoryUpdate(tx *gorm.DB, tenantId string, id int, referenceType string, before interface{}, after interface{}, description string) error {
	return createHistory(tx, tenantId, HistoryActionUpdate, id, referenceType, before, after, description)
}

// GetHistories lists the audit rows of one record, oldest first.
func GetHistories(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {
	var results []*History
	err := config.GetDB().WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").
		Find(&results).Error
	return results, err
}
