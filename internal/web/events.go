package web

import (
	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"net/http"
)

const eventBuffer = 8

// CartEvents streams a "cart" server-sent event with the badge summary on
// connect and after every change of the session's cart.
func (h *Handler) CartEvents(c *gin.Context) {
	store := storeFrom(c)

	updates := make(chan cartSummary, eventBuffer)
	unsubscribe := store.Subscribe(func(event cartstore.Event) {
		select {
		case updates <- h.format.summary(event.Cart, h.shop.Currency):
		default:
			// slow client, it gets the next one
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent("cart", h.format.summary(store.Snapshot(), h.shop.Currency))
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case summary := <-updates:
			c.SSEvent("cart", summary)
			c.Writer.Flush()
		}
	}
}
