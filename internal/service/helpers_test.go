package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"mall-checkout/internal/client"
	"mall-checkout/internal/dto"
	"mall-checkout/internal/lock"
	"mall-checkout/internal/model"
	"mall-checkout/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeLocker implements lock.Locker for testing
type fakeLocker struct {
	acquireErr error
	acquired   [][]string
	released   int
}

func (f *fakeLocker) Acquire(_ context.Context, keys []string, _ time.Duration) (*lock.Lease, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired = append(f.acquired, keys)
	return &lock.Lease{}, nil
}

func (f *fakeLocker) Release(_ context.Context, _ *lock.Lease) {
	f.released++
}

// fakeScheduler implements queue.Scheduler for testing
type fakeScheduler struct {
	scheduled   map[int64]time.Duration
	cancelled   []int64
	scheduleErr error
	cancelErr   error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[int64]time.Duration)}
}

func (f *fakeScheduler) Schedule(_ context.Context, paymentID int64, delay time.Duration) error {
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled[paymentID] = delay
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, paymentID int64) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, paymentID)
	return nil
}

// fakeInvalidator implements cache.Invalidator for testing
type fakeInvalidator struct {
	domains []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, domain string) {
	f.domains = append(f.domains, domain)
}

type fixture struct {
	db          *gorm.DB
	locker      *fakeLocker
	scheduler   *fakeScheduler
	invalidator *fakeInvalidator
	checkout    CheckoutService
	payment     PaymentService
}

const testReferencePrefix = "MALLPAY"

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	f := &fixture{
		db:          db,
		locker:      &fakeLocker{},
		scheduler:   newFakeScheduler(),
		invalidator: &fakeInvalidator{},
	}

	skuRepo := repository.NewSkuRepository(db)
	cartRepo := repository.NewCartItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txRepo := repository.NewPaymentTransactionRepository(db)

	f.checkout = NewCheckoutService(
		db, cartRepo, skuRepo, orderRepo, paymentRepo,
		f.locker, f.scheduler, f.invalidator, zap.NewNop(),
		3*time.Second, 24*time.Hour,
	)
	f.payment = NewPaymentService(
		db, paymentRepo, orderRepo, skuRepo, txRepo,
		f.scheduler, zap.NewNop(), testReferencePrefix,
	)
	return f
}

func published() *time.Time {
	ts := time.Now().Add(-time.Hour)
	return &ts
}

// seedCatalog creates a published product for the seller with one SKU.
func seedCatalog(t *testing.T, db *gorm.DB, sellerID, stock, priceCents int64) *model.Sku {
	t.Helper()

	product := &model.Product{
		SellerID:    sellerID,
		Name:        "Linen Shirt",
		Image:       "https://cdn.example.com/shirt.jpg",
		PublishedAt: published(),
		Translations: []model.ProductTranslation{
			{Lang: "en", Name: "Linen Shirt", Description: "A shirt"},
			{Lang: "vi", Name: "Áo lanh", Description: "Một chiếc áo"},
		},
	}
	require.NoError(t, db.Create(product).Error)

	sku := &model.Sku{
		ProductID:  product.ID,
		SellerID:   sellerID,
		Variant:    "Red-Large",
		PriceCents: priceCents,
		Stock:      stock,
	}
	require.NoError(t, db.Create(sku).Error)
	return sku
}

func seedCartItem(t *testing.T, db *gorm.DB, userID, skuID, quantity int64) *model.CartItem {
	t.Helper()
	item := &model.CartItem{UserID: userID, SkuID: skuID, Quantity: quantity}
	require.NoError(t, db.Create(item).Error)
	return item
}

func checkoutGroup(sellerID int64, cartItemIDs ...int64) dto.CheckoutGroup {
	return dto.CheckoutGroup{
		SellerID: sellerID,
		Receiver: dto.Receiver{
			Name:    "Alex Tran",
			Phone:   "+84 90 000 0000",
			Address: "1 Pasteur, District 1",
		},
		CartItemIDs: cartItemIDs,
	}
}

func getSku(t *testing.T, db *gorm.DB, id int64) *model.Sku {
	t.Helper()
	var sku model.Sku
	require.NoError(t, db.First(&sku, id).Error)
	return &sku
}

func getPayment(t *testing.T, db *gorm.DB, id int64) *model.Payment {
	t.Helper()
	var payment model.Payment
	require.NoError(t, db.Preload("Orders").First(&payment, id).Error)
	return &payment
}

func getOrder(t *testing.T, db *gorm.DB, id int64) *model.Order {
	t.Helper()
	var order model.Order
	require.NoError(t, db.Preload("Items").First(&order, id).Error)
	return &order
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}
