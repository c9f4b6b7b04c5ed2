package utils

import (
	"context"

	"gorm.io/gorm"
)

// FetchModel loads T by id, preloading the given associations.
// Tenant scope comes from ctx through the DB plugin. Missing rows return a NotFoundError.
func FetchModel[T any](ctx context.Context, db *gorm.DB, entity string, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.First(&result, id).Error; err != nil {
		return nil, TranslateDBError(err, entity, id)
	}
	return &result, nil
}
