package service

import "errors"

// Contention: retryable by the caller, never retried here.
var (
	ErrLockUnavailable = errors.New("sku locked by another checkout")
	ErrVersionConflict = errors.New("stock moved during checkout")
)

// Validation: request rejected, nothing committed.
var (
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrOutOfStock         = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrSellerMismatch     = errors.New("cart item does not belong to stated seller")
	ErrAmountMismatch     = errors.New("transferred amount does not match order total")
)

// Idempotency / not-found / state.
var (
	ErrDuplicateTransaction = errors.New("gateway transaction already processed")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCannotCancel         = errors.New("order is not cancellable")
)
