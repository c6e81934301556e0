package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mall-checkout/internal/cache"
	"mall-checkout/internal/dto"
	"mall-checkout/internal/lock"
	"mall-checkout/internal/model"
	"mall-checkout/internal/queue"
	"mall-checkout/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutService interface {
	// Checkout settles a multi-seller cart into one payment with one
	// order per seller group. All-or-nothing: any validation or
	// contention failure leaves storage untouched.
	Checkout(ctx context.Context, buyerID int64, groups []dto.CheckoutGroup) (*dto.CheckoutResponse, error)
	GetOrder(ctx context.Context, buyerID, orderID int64) (*dto.OrderResponse, error)
}

type checkoutServiceImpl struct {
	db          *gorm.DB
	cartRepo    repository.CartItemRepository
	skuRepo     repository.SkuRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	locker      lock.Locker
	scheduler   queue.Scheduler
	invalidator cache.Invalidator
	logger      *zap.Logger

	lockTTL        time.Duration
	paymentTimeout time.Duration
}

func NewCheckoutService(
	db *gorm.DB,
	cartRepo repository.CartItemRepository,
	skuRepo repository.SkuRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	locker lock.Locker,
	scheduler queue.Scheduler,
	invalidator cache.Invalidator,
	logger *zap.Logger,
	lockTTL time.Duration,
	paymentTimeout time.Duration,
) CheckoutService {
	return &checkoutServiceImpl{
		db:             db,
		cartRepo:       cartRepo,
		skuRepo:        skuRepo,
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
		locker:         locker,
		scheduler:      scheduler,
		invalidator:    invalidator,
		logger:         logger,
		lockTTL:        lockTTL,
		paymentTimeout: paymentTimeout,
	}
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, buyerID int64, groups []dto.CheckoutGroup) (*dto.CheckoutResponse, error) {
	if len(groups) == 0 {
		return nil, ErrCartItemNotFound
	}
	allIDs := make([]int64, 0)
	for _, g := range groups {
		allIDs = append(allIDs, g.CartItemIDs...)
	}
	if len(allIDs) == 0 {
		return nil, ErrCartItemNotFound
	}

	// resolve which SKUs the checkout touches so they can be locked
	resolved, err := s.cartRepo.FindForCheckout(ctx, s.db, buyerID, allIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}
	if len(resolved) != len(allIDs) {
		return nil, ErrCartItemNotFound
	}

	lockKeys := make([]string, 0, len(resolved))
	seen := make(map[int64]bool)
	for _, item := range resolved {
		if !seen[item.SkuID] {
			seen[item.SkuID] = true
			lockKeys = append(lockKeys, lock.SkuKey(item.SkuID))
		}
	}

	lease, err := s.locker.Acquire(ctx, lockKeys, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockUnavailable) {
			return nil, ErrLockUnavailable
		}
		return nil, fmt.Errorf("acquire sku locks: %w", err)
	}
	defer s.locker.Release(ctx, lease)

	var resp *dto.CheckoutResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resp, err = s.checkoutTx(ctx, tx, buyerID, groups, allIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	// after commit: read-side list caches are stale for every product
	// whose stock changed
	s.invalidator.Invalidate(ctx, cache.DomainProductList)

	return resp, nil
}

func (s *checkoutServiceImpl) checkoutTx(ctx context.Context, tx *gorm.DB, buyerID int64, groups []dto.CheckoutGroup, allIDs []int64) (*dto.CheckoutResponse, error) {
	// re-fetch under the locks; a concurrent cart mutation shows up as
	// a count mismatch
	items, err := s.cartRepo.FindForCheckout(ctx, tx, buyerID, allIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch cart items: %w", err)
	}
	if len(items) != len(allIDs) {
		return nil, ErrCartItemNotFound
	}

	byID := make(map[int64]*model.CartItem, len(items))
	skuTotals := make(map[int64]int64)
	skuStock := make(map[int64]int64)
	skuVersions := make(map[int64]int64)
	now := time.Now()

	for _, item := range items {
		byID[item.ID] = item
		sku := item.Sku

		if sku.Stock < item.Quantity {
			return nil, ErrOutOfStock
		}

		product := sku.Product
		if product.ID == 0 { // soft-deleted, excluded by the default scope
			return nil, ErrProductUnavailable
		}
		if product.PublishedAt == nil || product.PublishedAt.After(now) {
			return nil, ErrProductUnavailable
		}

		skuTotals[sku.ID] += item.Quantity
		skuStock[sku.ID] = sku.Stock
		skuVersions[sku.ID] = sku.Version
	}

	// two cart lines on the same SKU must not pass individually while
	// overdrawing together
	for skuID, total := range skuTotals {
		if skuStock[skuID] < total {
			return nil, ErrOutOfStock
		}
	}

	for _, g := range groups {
		for _, id := range g.CartItemIDs {
			item, ok := byID[id]
			if !ok {
				return nil, ErrCartItemNotFound
			}
			if item.Sku.SellerID != g.SellerID {
				return nil, ErrSellerMismatch
			}
		}
	}

	payment := &model.Payment{Status: model.PaymentStatusPending}
	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	resp := &dto.CheckoutResponse{PaymentID: payment.ID}
	for _, g := range groups {
		order := &model.Order{
			BuyerID:         buyerID,
			SellerID:        g.SellerID,
			PaymentID:       payment.ID,
			Status:          model.OrderStatusPendingPayment,
			ReceiverName:    g.Receiver.Name,
			ReceiverPhone:   g.Receiver.Phone,
			ReceiverAddress: g.Receiver.Address,
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}

		orderItems := make([]*model.OrderItem, 0, len(g.CartItemIDs))
		for _, id := range g.CartItemIDs {
			snapshot, err := snapshotItem(order.ID, byID[id])
			if err != nil {
				return nil, err
			}
			orderItems = append(orderItems, snapshot)
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
			return nil, fmt.Errorf("create order items: %w", err)
		}

		resp.Orders = append(resp.Orders, orderResponse(order, orderItems))
	}

	if err := s.cartRepo.DeleteByIDs(ctx, tx, allIDs); err != nil {
		return nil, fmt.Errorf("consume cart items: %w", err)
	}

	for skuID, total := range skuTotals {
		err := s.skuRepo.Decrement(ctx, tx, skuID, total, skuVersions[skuID])
		if errors.Is(err, repository.ErrVersionConflict) {
			// the lock should have made this impossible; surfacing it
			// instead of retrying keeps lock-manager bugs visible
			s.logger.Error("version conflict under sku lock",
				zap.Int64("sku_id", skuID), zap.Int64("buyer_id", buyerID))
			return nil, ErrVersionConflict
		}
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	// scheduled before commit so a crash cannot leave a payment that
	// never expires
	if err := s.scheduler.Schedule(ctx, payment.ID, s.paymentTimeout); err != nil {
		return nil, fmt.Errorf("schedule cancellation: %w", err)
	}

	return resp, nil
}

func snapshotItem(orderID int64, item *model.CartItem) (*model.OrderItem, error) {
	product := item.Sku.Product
	translations, err := json.Marshal(product.Translations)
	if err != nil {
		return nil, fmt.Errorf("snapshot translations: %w", err)
	}

	skuID := item.SkuID
	return &model.OrderItem{
		OrderID:      orderID,
		SkuID:        &skuID,
		ProductName:  product.Name,
		PriceCents:   item.Sku.PriceCents,
		Image:        product.Image,
		Variant:      item.Sku.Variant,
		Quantity:     item.Quantity,
		Translations: string(translations),
	}, nil
}

func orderResponse(order *model.Order, items []*model.OrderItem) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:     order.ID,
		Status: string(order.Status),
		ShopID: order.SellerID,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			ID:          it.ID,
			SkuID:       it.SkuID,
			ProductName: it.ProductName,
			PriceCents:  it.PriceCents,
			Image:       it.Image,
			Variant:     it.Variant,
			Quantity:    it.Quantity,
		})
	}
	return resp
}

func (s *checkoutServiceImpl) GetOrder(ctx context.Context, buyerID, orderID int64) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForBuyer(ctx, orderID, buyerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	items := make([]*model.OrderItem, len(order.Items))
	for i := range order.Items {
		items[i] = &order.Items[i]
	}
	resp := orderResponse(order, items)
	return &resp, nil
}
