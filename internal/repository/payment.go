package repository

import (
	"context"
	"time"

	"mall-checkout/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	// FindWithOrders loads the payment with its orders and their item
	// snapshots. Returns gorm.ErrRecordNotFound if absent.
	FindWithOrders(ctx context.Context, tx *gorm.DB, paymentID int64) (*model.Payment, error)
	// MarkSuccess / MarkFailed flip the payment out of PENDING. The
	// status guard makes re-application a no-op; both report whether
	// the transition happened in this call.
	MarkSuccess(ctx context.Context, tx *gorm.DB, paymentID int64) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, paymentID int64) (bool, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindWithOrders(ctx context.Context, tx *gorm.DB, paymentID int64) (*model.Payment, error) {
	var payment model.Payment
	err := tx.WithContext(ctx).
		Preload("Orders").
		Preload("Orders.Items").
		Where("id = ?", paymentID).
		First(&payment).Error

	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepoImpl) MarkSuccess(ctx context.Context, tx *gorm.DB, paymentID int64) (bool, error) {
	return r.transition(ctx, tx, paymentID, model.PaymentStatusSuccess)
}

func (r *paymentRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, paymentID int64) (bool, error) {
	return r.transition(ctx, tx, paymentID, model.PaymentStatusFailed)
}

func (r *paymentRepoImpl) transition(ctx context.Context, tx *gorm.DB, paymentID int64, to model.PaymentStatus) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
