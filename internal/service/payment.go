package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mall-checkout/internal/dto"
	"mall-checkout/internal/model"
	"mall-checkout/internal/queue"
	"mall-checkout/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService interface {
	// Settle processes a gateway webhook. On success the payment flips
	// to SUCCESS, its orders to PENDING_PICKUP, and the scheduled
	// cancellation is removed. Returns the buyer id for notification.
	Settle(ctx context.Context, req *dto.WebhookRequest) (int64, error)
	// Expire is the timeout path, invoked by the delayed-job worker.
	// Safe to run more than once; a missing payment is a no-op.
	Expire(ctx context.Context, paymentID int64) error
	// Cancel is buyer-initiated and only valid while the order is still
	// PENDING_PAYMENT. It does not restore stock and does not touch the
	// payment or sibling orders; stock is reclaimed by the timeout path.
	Cancel(ctx context.Context, buyerID, orderID int64) error
}

type paymentServiceImpl struct {
	db          *gorm.DB
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	skuRepo     repository.SkuRepository
	txRepo      repository.PaymentTransactionRepository
	scheduler   queue.Scheduler
	logger      *zap.Logger

	referencePrefix string
}

func NewPaymentService(
	db *gorm.DB,
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	skuRepo repository.SkuRepository,
	txRepo repository.PaymentTransactionRepository,
	scheduler queue.Scheduler,
	logger *zap.Logger,
	referencePrefix string,
) PaymentService {
	return &paymentServiceImpl{
		db:              db,
		paymentRepo:     paymentRepo,
		orderRepo:       orderRepo,
		skuRepo:         skuRepo,
		txRepo:          txRepo,
		scheduler:       scheduler,
		logger:          logger,
		referencePrefix: referencePrefix,
	}
}

func (s *paymentServiceImpl) Settle(ctx context.Context, req *dto.WebhookRequest) (int64, error) {
	var buyerID int64
	var paymentID int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.txRepo.Exists(ctx, tx, req.ID)
		if err != nil {
			return fmt.Errorf("check gateway transaction: %w", err)
		}
		if exists {
			return ErrDuplicateTransaction
		}

		reference := req.Code
		if reference == "" {
			reference = req.Content
		}
		paymentID, err = parseReference(s.referencePrefix, reference)
		if err != nil {
			return ErrPaymentNotFound
		}

		payment, err := s.paymentRepo.FindWithOrders(ctx, tx, paymentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}

		var expectedCents int64
		for _, order := range payment.Orders {
			buyerID = order.BuyerID
			for _, item := range order.Items {
				expectedCents += item.PriceCents * item.Quantity
			}
		}
		expected := decimal.New(expectedCents, -2)
		if !req.TransferAmount.Equal(expected) {
			return ErrAmountMismatch
		}

		err = s.txRepo.Create(ctx, tx, &model.PaymentTransaction{
			GatewayTxID: req.ID,
			PaymentID:   paymentID,
			Gateway:     req.Gateway,
			AmountCents: expectedCents,
			Content:     reference,
		})
		if err != nil {
			return fmt.Errorf("record gateway transaction: %w", err)
		}

		// status guards: if the timeout already expired this payment,
		// nothing flips and the terminal state stands
		settled, err := s.paymentRepo.MarkSuccess(ctx, tx, paymentID)
		if err != nil {
			return fmt.Errorf("mark payment success: %w", err)
		}
		if !settled {
			s.logger.Warn("webhook arrived after payment reached a terminal state",
				zap.Int64("payment_id", paymentID), zap.String("gateway_tx_id", req.ID))
			return nil
		}

		return s.orderRepo.MarkPendingPickup(ctx, tx, paymentID)
	})
	if err != nil {
		return 0, err
	}

	// a stale job is harmless (the expire handler no-ops on SUCCESS),
	// so a failed removal never fails the settlement
	if err := s.scheduler.Cancel(ctx, paymentID); err != nil {
		s.logger.Warn("remove scheduled cancellation",
			zap.Int64("payment_id", paymentID), zap.Error(err))
	}

	return buyerID, nil
}

func (s *paymentServiceImpl) Expire(ctx context.Context, paymentID int64) error {
	payment, err := s.paymentRepo.FindWithOrders(ctx, s.db, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// at-least-once delivery: already handled elsewhere
		return nil
	}
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range payment.Orders {
			cancelled, err := s.orderRepo.MarkCancelled(ctx, tx, order.ID)
			if err != nil {
				return fmt.Errorf("cancel order %d: %w", order.ID, err)
			}
			if !cancelled {
				// picked up or already cancelled; restoring here would
				// double-count on redelivery
				continue
			}
			for _, item := range order.Items {
				if item.SkuID == nil {
					continue
				}
				if err := s.skuRepo.Increment(ctx, tx, *item.SkuID, item.Quantity); err != nil {
					return fmt.Errorf("restore stock for sku %d: %w", *item.SkuID, err)
				}
			}
		}

		if _, err := s.paymentRepo.MarkFailed(ctx, tx, paymentID); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		return nil
	})
}

func (s *paymentServiceImpl) Cancel(ctx context.Context, buyerID, orderID int64) error {
	order, err := s.orderRepo.FindByIDForBuyer(ctx, orderID, buyerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.Status != model.OrderStatusPendingPayment {
		return ErrCannotCancel
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cancelled, err := s.orderRepo.MarkCancelled(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if !cancelled {
			// lost the race against settlement or expiry
			return ErrCannotCancel
		}
		return nil
	})
}

// parseReference pulls the numeric payment id out of the free-text
// transfer reference: the digits immediately following the configured
// prefix, e.g. "thanks MALLPAY42 order" -> 42.
func parseReference(prefix, reference string) (int64, error) {
	idx := strings.Index(reference, prefix)
	if idx < 0 {
		return 0, fmt.Errorf("reference %q missing prefix %q", reference, prefix)
	}

	rest := reference[idx+len(prefix):]
	end := 0
	for end < len(rest) && unicode.IsDigit(rune(rest[end])) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("reference %q has no payment id after prefix", reference)
	}
	return strconv.ParseInt(rest[:end], 10, 64)
}
