package repository

import (
	"context"
	"errors"

	"mall-checkout/internal/model"

	"gorm.io/gorm"
)

// ErrVersionConflict means the guarded decrement matched no row: either
// the version token moved since it was read, or stock is insufficient.
var ErrVersionConflict = errors.New("sku version conflict or insufficient stock")

type SkuRepository interface {
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*model.Sku, error)
	// Decrement reduces stock and bumps the version token in one
	// conditional update. The version and stock guards together are the
	// optimistic-concurrency check.
	Decrement(ctx context.Context, tx *gorm.DB, skuID, quantity, expectedVersion int64) error
	// Increment restores stock unconditionally. Compensation path only;
	// a missing (deleted) SKU is not an error.
	Increment(ctx context.Context, tx *gorm.DB, skuID, quantity int64) error
}

type skuRepoImpl struct {
	db *gorm.DB
}

func NewSkuRepository(db *gorm.DB) SkuRepository {
	return &skuRepoImpl{db: db}
}

func (r *skuRepoImpl) FindByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*model.Sku, error) {
	var skus []*model.Sku
	err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&skus).Error
	if err != nil {
		return nil, err
	}
	return skus, nil
}

func (r *skuRepoImpl) Decrement(ctx context.Context, tx *gorm.DB, skuID, quantity, expectedVersion int64) error {
	result := tx.WithContext(ctx).Model(&model.Sku{}).
		Where("id = ? AND version = ? AND stock >= ?", skuID, expectedVersion, quantity).
		Updates(map[string]interface{}{
			"stock":   gorm.Expr("stock - ?", quantity),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *skuRepoImpl) Increment(ctx context.Context, tx *gorm.DB, skuID, quantity int64) error {
	return tx.WithContext(ctx).Model(&model.Sku{}).
		Where("id = ?", skuID).
		Updates(map[string]interface{}{
			"stock":   gorm.Expr("stock + ?", quantity),
			"version": gorm.Expr("version + 1"),
		}).Error
}
