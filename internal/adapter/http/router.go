package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maximzom/shoebot/internal/adapter/http/middleware"
	"github.com/maximzom/shoebot/internal/logging"
)

type RouterDeps struct {
	Events  *EventHandler
	Catalog *CatalogHandler
	Orders  *OrderHandler
	Tokens  *TokenHandler
	Authz   *middleware.Authz

	WebhookToken string
	Log          *slog.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Logging(d.Log))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Info("health check")
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", d.Tokens.IssueToken)

	v1 := r.Group("/v1")
	{
		// Webhook from the messaging platform; shared-secret guarded.
		v1.POST("/events", middleware.WebhookToken(d.WebhookToken), d.Events.HandleEvent)

		// Public catalog reads.
		v1.GET("/catalog", d.Catalog.ListItems)
		v1.GET("/catalog/:sku", d.Catalog.GetItem)

		// Admin reads.
		v1.GET("/orders/:number", d.Authz.Require("orders.read"), d.Orders.GetOrder)
		v1.GET("/orders/:number/status", d.Authz.Require("orders.read"), d.Orders.GetOrderStatus)
		v1.GET("/users/:id/orders", d.Authz.Require("orders.read"), d.Orders.ListUserOrders)
	}

	return r
}
