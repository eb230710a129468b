package web

import (
	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"github.com/nikolayk812/bakery-cart/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net/http"
)

func NewRouter(h *Handler, sessions *cartstore.Sessions, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(log), metrics.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	shop := r.Group("/", SessionMiddleware(sessions))
	{
		shop.GET("/", h.CatalogPage)
		shop.GET("/cart", h.CartPage)
		shop.GET("/checkout", h.CheckoutPage)
		shop.GET("/cart/events", h.CartEvents)
		shop.GET("/api/cart", h.CartSnapshot)

		shop.POST("/cart/items", h.AddItem)
		shop.POST("/cart/items/increment", h.IncrementItem)
		shop.POST("/cart/items/decrement", h.DecrementItem)
		shop.POST("/cart/items/remove", h.RemoveItem)
		shop.POST("/cart/clear", h.ClearCart)
		shop.POST("/cart/checkout", h.Checkout)
		shop.POST("/checkout", h.SubmitCheckout)
	}

	return r
}
