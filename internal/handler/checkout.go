package handler

import (
	"errors"
	"net/http"
	"strconv"

	"mall-checkout/internal/dto"
	"mall-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	paymentService  service.PaymentService
}

func NewCheckoutHandler(checkoutService service.CheckoutService, paymentService service.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		paymentService:  paymentService,
	}
}

func buyerIDFromHeader(c echo.Context) (int64, error) {
	raw := c.Request().Header.Get("X-Buyer-Id")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "missing X-Buyer-Id header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid X-Buyer-Id header")
	}
	return id, nil
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := buyerIDFromHeader(c)
	if err != nil {
		return err
	}

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.checkoutService.Checkout(ctx, buyerID, req.Orders)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := buyerIDFromHeader(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.checkoutService.GetOrder(ctx, buyerID, orderID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *CheckoutHandler) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := buyerIDFromHeader(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	if err := h.paymentService.Cancel(ctx, buyerID, orderID); err != nil {
		return mapServiceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrLockUnavailable),
		errors.Is(err, service.ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrSellerMismatch),
		errors.Is(err, service.ErrAmountMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateTransaction),
		errors.Is(err, service.ErrCannotCancel):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
