package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"enkana/internal/handler"
	"enkana/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler     *handler.OrderHandler
	PaymentHandler   *handler.PaymentHandler
	ExceptionHandler *handler.ExceptionHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("", deps.OrderHandler.GetAll)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.GET("/:id/payment-status", deps.OrderHandler.GetPaymentStatus)
		}

		// Payment routes. The callback is the webhook Daraja calls
		// out-of-band; everything else is the dashboard.
		payments := v1.Group("/payments")
		{
			payments.POST("/stkpush", deps.PaymentHandler.InitiateSTKPush)
			payments.POST("/callback", deps.PaymentHandler.Callback)
			payments.POST("/query", deps.PaymentHandler.QueryStatus)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Exception ledger routes.
		exceptions := v1.Group("/exceptions")
		{
			exceptions.GET("", deps.ExceptionHandler.ListUnresolved)
			exceptions.POST("/:id/resolve", deps.ExceptionHandler.Resolve)
		}
	}

	return router
}
