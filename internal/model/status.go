package model

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPendingPickup  OrderStatus = "PENDING_PICKUP"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// SUCCESS and FAILED are terminal; same for PENDING_PICKUP and CANCELLED.
var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentStatusPending: {PaymentStatusSuccess: true, PaymentStatusFailed: true},
	PaymentStatusSuccess: {},
	PaymentStatusFailed:  {},
}

var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPendingPayment: {OrderStatusPendingPickup: true, OrderStatusCancelled: true},
	OrderStatusPendingPickup:  {},
	OrderStatusCancelled:      {},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return paymentNext[s][to]
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderNext[s][to]
}
