package utils

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// RunInTransaction commits fn's writes as one unit or rolls all of them back.
// A panic inside fn rolls back and re-panics.
func RunInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err = ctx.Err(); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RetryOnConflict runs fn and, on a retryable conflict, runs it exactly once more.
func RetryOnConflict[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err != nil && IsRetryable(err) && ctx.Err() == nil {
		return fn(ctx)
	}
	return result, err
}
