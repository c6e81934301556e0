package repository

import (
	"context"

	"mall-checkout/internal/model"

	"gorm.io/gorm"
)

type CartItemRepository interface {
	// FindForCheckout loads the buyer's cart items with SKU, product and
	// the product's translation set joined, ready for snapshotting.
	FindForCheckout(ctx context.Context, tx *gorm.DB, userID int64, ids []int64) ([]*model.CartItem, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []int64) error
}

type cartItemRepoImpl struct {
	db *gorm.DB
}

func NewCartItemRepository(db *gorm.DB) CartItemRepository {
	return &cartItemRepoImpl{db: db}
}

func (r *cartItemRepoImpl) FindForCheckout(ctx context.Context, tx *gorm.DB, userID int64, ids []int64) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := tx.WithContext(ctx).
		Preload("Sku").
		Preload("Sku.Product").
		Preload("Sku.Product.Translations").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&items).Error

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartItemRepoImpl) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []int64) error {
	return tx.WithContext(ctx).Where("id IN ?", ids).Delete(&model.CartItem{}).Error
}
