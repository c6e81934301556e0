package handler

import (
	"net/http"

	"mall-checkout/internal/dto"
	"mall-checkout/internal/notify"
	"mall-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	notifier       notify.Notifier
}

func NewPaymentHandler(paymentService service.PaymentService, notifier notify.Notifier) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		notifier:       notifier,
	}
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.WebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing gateway transaction id")
	}

	buyerID, err := h.paymentService.Settle(ctx, &req)
	if err != nil {
		return mapServiceError(err)
	}

	// best-effort, decoupled from the settlement transaction
	h.notifier.NotifyUser(buyerID, "payment", map[string]string{
		"gateway_tx_id": req.ID,
	})

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
