package dto

import "github.com/shopspring/decimal"

type Receiver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CheckoutGroup is one seller's share of the checkout: the cart items
// bought from that seller plus where to ship them.
type CheckoutGroup struct {
	SellerID    int64    `json:"sellerId"`
	Receiver    Receiver `json:"receiver"`
	CartItemIDs []int64  `json:"cartItemIds"`
}

type CheckoutRequest struct {
	Orders []CheckoutGroup `json:"orders"`
}

type OrderItemResponse struct {
	ID          int64  `json:"id"`
	SkuID       *int64 `json:"skuId"`
	ProductName string `json:"productName"`
	PriceCents  int64  `json:"priceCents"`
	Image       string `json:"image"`
	Variant     string `json:"variant"`
	Quantity    int64  `json:"quantity"`
}

type OrderResponse struct {
	ID     int64               `json:"id"`
	Status string              `json:"status"`
	ShopID int64               `json:"shopId"`
	Items  []OrderItemResponse `json:"items"`
}

type CheckoutResponse struct {
	PaymentID int64           `json:"paymentId"`
	Orders    []OrderResponse `json:"orders"`
}

// WebhookRequest is the gateway's payment notification. The payment id
// is embedded in whichever of Code / Content is present.
type WebhookRequest struct {
	ID             string          `json:"id"` // gateway transaction id
	Code           string          `json:"code,omitempty"`
	Content        string          `json:"content,omitempty"`
	Gateway        string          `json:"gateway,omitempty"`
	TransferAmount decimal.Decimal `json:"transferAmount"`
}
