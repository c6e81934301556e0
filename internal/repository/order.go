package repository

import (
	"context"
	"time"

	"mall-checkout/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByIDForBuyer(ctx context.Context, orderID, buyerID int64) (*model.Order, error)
	// MarkPendingPickup flips every PENDING_PAYMENT order under the
	// payment to PENDING_PICKUP. Orders already terminal are untouched.
	MarkPendingPickup(ctx context.Context, tx *gorm.DB, paymentID int64) error
	// MarkCancelled flips a single order to CANCELLED only if it is
	// still PENDING_PAYMENT. Reports whether a row actually changed.
	MarkCancelled(ctx context.Context, tx *gorm.DB, orderID int64) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByIDForBuyer(ctx context.Context, orderID, buyerID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND buyer_id = ?", orderID, buyerID).
		First(&order).Error

	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) MarkPendingPickup(ctx context.Context, tx *gorm.DB, paymentID int64) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("payment_id = ? AND status = ?", paymentID, model.OrderStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusPendingPickup,
			"updated_at": time.Now(),
		}).Error
}

func (r *orderRepoImpl) MarkCancelled(ctx context.Context, tx *gorm.DB, orderID int64) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusCancelled,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
