package server

import (
	"mall-checkout/internal/handler"
	mw "mall-checkout/internal/middleware"
	"mall-checkout/internal/notify"
	"mall-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	paymentHandler  *handler.PaymentHandler
}

func NewServer(
	checkoutService service.CheckoutService,
	paymentService service.PaymentService,
	notifier notify.Notifier,
	webhookKey string,
) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService, paymentService),
		paymentHandler:  handler.NewPaymentHandler(paymentService, notifier),
	}

	s.setupRoutes(webhookKey)
	return s
}

func (s *Server) setupRoutes(webhookKey string) {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.POST("/checkout", s.checkoutHandler.Checkout)
	api.GET("/orders/:id", s.checkoutHandler.GetOrder)
	api.POST("/orders/:id/cancel", s.checkoutHandler.CancelOrder)

	payment := api.Group("/payment")
	payment.POST("/webhook", s.paymentHandler.Webhook, mw.WebhookAuth(webhookKey))
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
