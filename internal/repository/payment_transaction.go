package repository

import (
	"context"

	"mall-checkout/internal/model"

	"gorm.io/gorm"
)

type PaymentTransactionRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, gatewayTxID string) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, record *model.PaymentTransaction) error
}

type paymentTransactionRepoImpl struct {
	db *gorm.DB
}

func NewPaymentTransactionRepository(db *gorm.DB) PaymentTransactionRepository {
	return &paymentTransactionRepoImpl{db: db}
}

func (r *paymentTransactionRepoImpl) Exists(ctx context.Context, tx *gorm.DB, gatewayTxID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("gateway_tx_id = ?", gatewayTxID).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentTransactionRepoImpl) Create(ctx context.Context, tx *gorm.DB, record *model.PaymentTransaction) error {
	return tx.WithContext(ctx).Create(record).Error
}
