package api

import (
	"github.com/appcourier/appcourier/internal/api/controllers"
	"github.com/appcourier/appcourier/internal/app"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	webhookCtrl := &controllers.WebhookController{App: app}
	deliveryCtrl := &controllers.DeliveryController{App: app}

	// Gateway webhook: every inbound message and poll vote lands here
	e.POST("/webhook", webhookCtrl.Handle)

	// Liveness probe
	e.GET("/healthz", webhookCtrl.Health)

	// Delivery history
	e.GET("/api/deliveries", deliveryCtrl.HandleRecent)
}
