package service

import (
	"context"
	"fmt"
	"testing"

	"mall-checkout/internal/dto"
	"mall-checkout/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutOnce runs one stock=5 qty=5 checkout at 15.00 per unit and
// returns the response; total payable is 75.00.
func checkoutOnce(t *testing.T, f *fixture) (*dto.CheckoutResponse, *model.Sku) {
	t.Helper()
	sku := seedCatalog(t, f.db, 1, 5, 1500)
	item := seedCartItem(t, f.db, buyerID, sku.ID, 5)
	resp, err := f.checkout.Checkout(context.Background(), buyerID, []dto.CheckoutGroup{
		checkoutGroup(1, item.ID),
	})
	require.NoError(t, err)
	return resp, sku
}

func webhook(gatewayTxID string, paymentID int64, amount decimal.Decimal) *dto.WebhookRequest {
	return &dto.WebhookRequest{
		ID:             gatewayTxID,
		Content:        fmt.Sprintf("thanks %s%d order", testReferencePrefix, paymentID),
		Gateway:        "sepay",
		TransferAmount: amount,
	}
}

func TestSettle_Success(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)

	gotBuyer, err := f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7500, -2)))
	require.NoError(t, err)
	assert.Equal(t, buyerID, gotBuyer)

	payment := getPayment(t, f.db, resp.PaymentID)
	assert.Equal(t, model.PaymentStatusSuccess, payment.Status)
	for _, order := range payment.Orders {
		assert.Equal(t, model.OrderStatusPendingPickup, order.Status)
	}

	// scheduled cancellation removed, stock stays sold
	assert.Contains(t, f.scheduler.cancelled, resp.PaymentID)
	assert.Equal(t, int64(0), getSku(t, f.db, sku.ID).Stock)
	assert.Equal(t, int64(1), countRows(t, f.db, &model.PaymentTransaction{}))
}

func TestSettle_ReferenceInCodeField(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, _ := checkoutOnce(t, f)

	req := &dto.WebhookRequest{
		ID:             "tx-002",
		Code:           fmt.Sprintf("%s%d", testReferencePrefix, resp.PaymentID),
		TransferAmount: decimal.New(7500, -2),
	}
	_, err := f.payment.Settle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, getPayment(t, f.db, resp.PaymentID).Status)
}

func TestSettle_AmountMismatch(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)

	_, err := f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7400, -2)))
	require.ErrorIs(t, err, ErrAmountMismatch)

	// nothing settled, nothing recorded, stock still reserved
	assert.Equal(t, model.PaymentStatusPending, getPayment(t, f.db, resp.PaymentID).Status)
	assert.Equal(t, int64(0), getSku(t, f.db, sku.ID).Stock)
	assert.Equal(t, int64(0), countRows(t, f.db, &model.PaymentTransaction{}))
}

func TestSettle_DuplicateTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, _ := checkoutOnce(t, f)

	_, err := f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7500, -2)))
	require.NoError(t, err)

	_, err = f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7500, -2)))
	require.ErrorIs(t, err, ErrDuplicateTransaction)

	// the original settlement stays authoritative
	assert.Equal(t, model.PaymentStatusSuccess, getPayment(t, f.db, resp.PaymentID).Status)
	assert.Equal(t, int64(1), countRows(t, f.db, &model.PaymentTransaction{}))
}

func TestSettle_PaymentNotFound(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.payment.Settle(ctx, webhook("tx-001", 424242, decimal.New(7500, -2)))
	require.ErrorIs(t, err, ErrPaymentNotFound)

	// unparseable reference is also a not-found, not a crash
	_, err = f.payment.Settle(ctx, &dto.WebhookRequest{
		ID:             "tx-002",
		Content:        "no reference here",
		TransferAmount: decimal.New(7500, -2),
	})
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestExpire_RestoresStockOnce(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)

	require.NoError(t, f.payment.Expire(ctx, resp.PaymentID))

	payment := getPayment(t, f.db, resp.PaymentID)
	assert.Equal(t, model.PaymentStatusFailed, payment.Status)
	for _, order := range payment.Orders {
		assert.Equal(t, model.OrderStatusCancelled, order.Status)
	}
	assert.Equal(t, int64(5), getSku(t, f.db, sku.ID).Stock)

	// at-least-once delivery: the second run must not restore again
	require.NoError(t, f.payment.Expire(ctx, resp.PaymentID))
	assert.Equal(t, int64(5), getSku(t, f.db, sku.ID).Stock)
}

func TestExpire_MissingPaymentIsNoOp(t *testing.T) {
	f := setupFixture(t)
	assert.NoError(t, f.payment.Expire(context.Background(), 424242))
}

func TestExpire_AfterSettlement(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)

	_, err := f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7500, -2)))
	require.NoError(t, err)

	// a stale job firing against a settled payment must change nothing
	require.NoError(t, f.payment.Expire(ctx, resp.PaymentID))

	payment := getPayment(t, f.db, resp.PaymentID)
	assert.Equal(t, model.PaymentStatusSuccess, payment.Status)
	for _, order := range payment.Orders {
		assert.Equal(t, model.OrderStatusPendingPickup, order.Status)
	}
	assert.Equal(t, int64(0), getSku(t, f.db, sku.ID).Stock)
}

func TestSettle_AfterExpiry(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)

	require.NoError(t, f.payment.Expire(ctx, resp.PaymentID))

	// the late webhook is recorded but cannot resurrect the payment
	_, err := f.payment.Settle(ctx, webhook("tx-late", resp.PaymentID, decimal.New(7500, -2)))
	require.NoError(t, err)

	payment := getPayment(t, f.db, resp.PaymentID)
	assert.Equal(t, model.PaymentStatusFailed, payment.Status)
	for _, order := range payment.Orders {
		assert.Equal(t, model.OrderStatusCancelled, order.Status)
	}
	assert.Equal(t, int64(5), getSku(t, f.db, sku.ID).Stock)
	assert.Equal(t, int64(1), countRows(t, f.db, &model.PaymentTransaction{}))
}

func TestCancel_DoesNotRestoreStock(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, sku := checkoutOnce(t, f)
	orderID := resp.Orders[0].ID

	require.NoError(t, f.payment.Cancel(ctx, buyerID, orderID))

	// order cancelled, but stock is only reclaimed by the timeout path
	assert.Equal(t, model.OrderStatusCancelled, getOrder(t, f.db, orderID).Status)
	assert.Equal(t, int64(0), getSku(t, f.db, sku.ID).Stock)
	assert.Equal(t, model.PaymentStatusPending, getPayment(t, f.db, resp.PaymentID).Status)
}

func TestCancel_OnlyFromPendingPayment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, _ := checkoutOnce(t, f)
	orderID := resp.Orders[0].ID

	_, err := f.payment.Settle(ctx, webhook("tx-001", resp.PaymentID, decimal.New(7500, -2)))
	require.NoError(t, err)

	err = f.payment.Cancel(ctx, buyerID, orderID)
	require.ErrorIs(t, err, ErrCannotCancel)
	assert.Equal(t, model.OrderStatusPendingPickup, getOrder(t, f.db, orderID).Status)
}

func TestCancel_Idempotent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, _ := checkoutOnce(t, f)
	orderID := resp.Orders[0].ID

	require.NoError(t, f.payment.Cancel(ctx, buyerID, orderID))
	require.ErrorIs(t, f.payment.Cancel(ctx, buyerID, orderID), ErrCannotCancel)
}

func TestCancel_OrderNotFound(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	resp, _ := checkoutOnce(t, f)

	// wrong buyer is indistinguishable from a missing order
	err := f.payment.Cancel(ctx, 99, resp.Orders[0].ID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	err = f.payment.Cancel(ctx, buyerID, 424242)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		name      string
		reference string
		want      int64
		wantErr   bool
	}{
		{"bare", "MALLPAY42", 42, false},
		{"embedded", "transfer MALLPAY1234 thank you", 1234, false},
		{"trailing text", "MALLPAY7abc", 7, false},
		{"missing prefix", "PAY42", 0, true},
		{"no digits", "MALLPAY-", 0, true},
		{"empty", "", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseReference("MALLPAY", tc.reference)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
