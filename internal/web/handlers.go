package web

import (
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/nikolayk812/bakery-cart/internal/catalog"
	"github.com/nikolayk812/bakery-cart/internal/config"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/logger"
	"github.com/nikolayk812/bakery-cart/internal/metrics"
	"github.com/shopspring/decimal"
	"html/template"
	"net/http"
	"net/url"
	"strings"
)

type Handler struct {
	catalog *catalog.Catalog
	shop    config.ShopConfig
	format  formatter
	pages   map[string]*template.Template
}

func NewHandler(cat *catalog.Catalog, shop config.ShopConfig) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Handler{
		catalog: cat,
		shop:    shop,
		format:  formatter{symbol: shop.CurrencySymbol},
		pages:   pages,
	}, nil
}

type addItemRequest struct {
	Name   string `form:"name" json:"name" binding:"required"`
	Price  string `form:"price" json:"price"`
	Return string `form:"return" json:"return"`
}

type itemRequest struct {
	Name string `form:"name" json:"name" binding:"required"`
}

type checkoutRequest struct {
	FullName string `form:"full_name" binding:"required"`
	Address  string `form:"address" binding:"required"`
	Phone    string `form:"phone" binding:"required"`
}

func (h *Handler) CatalogPage(c *gin.Context) {
	h.renderPage(c, pageCatalog, "Catalog", h.format.productViews(h.catalog.Products()))
}

func (h *Handler) CartPage(c *gin.Context) {
	h.renderPage(c, pageCart, "Cart", nil)
}

func (h *Handler) CheckoutPage(c *gin.Context) {
	h.renderPage(c, pageCheckout, "Checkout", nil)
}

// AddItem adds one unit of a product. A missing price falls back to the catalog price.
func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithNotice(c, safeReturn(req.Return), noticeInvalidItem, "")
		return
	}

	price, ok := h.resolvePrice(req)
	if !ok {
		redirectWithNotice(c, safeReturn(req.Return), noticeInvalidItem, "")
		return
	}

	if err := storeFrom(c).AddItem(c.Request.Context(), req.Name, price); err != nil {
		h.handleMutationError(c, err, safeReturn(req.Return))
		return
	}

	redirectWithNotice(c, safeReturn(req.Return), noticeAdded, req.Name)
}

func (h *Handler) IncrementItem(c *gin.Context) {
	h.mutateItem(c, func(c *gin.Context, name string) error {
		return storeFrom(c).IncrementItem(c.Request.Context(), name)
	})
}

func (h *Handler) DecrementItem(c *gin.Context) {
	h.mutateItem(c, func(c *gin.Context, name string) error {
		return storeFrom(c).DecrementItem(c.Request.Context(), name)
	})
}

func (h *Handler) RemoveItem(c *gin.Context) {
	h.mutateItem(c, func(c *gin.Context, name string) error {
		return storeFrom(c).RemoveItem(c.Request.Context(), name)
	})
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := storeFrom(c).Clear(c.Request.Context()); err != nil {
		h.handleMutationError(c, err, "/cart")
		return
	}
	c.Redirect(http.StatusSeeOther, "/cart")
}

// Checkout is the direct checkout button of the cart view.
func (h *Handler) Checkout(c *gin.Context) {
	confirmation, err := storeFrom(c).Checkout(c.Request.Context())
	if errors.Is(err, domain.ErrEmptyCart) {
		metrics.RecordCheckoutRejected("empty_cart")
		redirectWithNotice(c, "/cart", noticeCartEmpty, "")
		return
	}
	if err != nil {
		h.handleMutationError(c, err, "/cart")
		return
	}

	logger.Infow("checkout_confirmed",
		"order_id", confirmation.OrderID.String(),
		"owner_id", confirmation.OwnerID,
		"total", confirmation.Total.Amount.String(),
	)
	redirectWithNotice(c, "/", noticeThankYou, "")
}

// SubmitCheckout is the checkout form: required fields only, then back to the catalog.
func (h *Handler) SubmitCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBind(&req); err != nil {
		metrics.RecordCheckoutRejected("shipping_required")
		redirectWithNotice(c, "/checkout", noticeShippingRequired, "")
		return
	}

	confirmation, err := storeFrom(c).ConfirmCheckout(c.Request.Context(), domain.ShippingDetails{
		FullName: req.FullName,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if errors.Is(err, domain.ErrInvalidShipping) {
		metrics.RecordCheckoutRejected("shipping_required")
		redirectWithNotice(c, "/checkout", noticeShippingRequired, "")
		return
	}
	if err != nil {
		h.handleMutationError(c, err, "/checkout")
		return
	}

	logger.Infow("checkout_confirmed",
		"order_id", confirmation.OrderID.String(),
		"owner_id", confirmation.OwnerID,
		"total", confirmation.Total.Amount.String(),
		"items", len(confirmation.Items),
	)
	redirectWithNotice(c, "/", noticeOrderPlaced, "")
}

// CartSnapshot returns the current cart as JSON.
func (h *Handler) CartSnapshot(c *gin.Context) {
	store := storeFrom(c)

	summary := h.format.summary(store.Snapshot(), h.shop.Currency)
	summary.CheckoutState = store.CheckoutState().String()

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) mutateItem(c *gin.Context, fn func(c *gin.Context, name string) error) {
	var req itemRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithNotice(c, "/cart", noticeUnknownItem, "")
		return
	}

	if err := fn(c, req.Name); err != nil {
		h.handleMutationError(c, err, "/cart")
		return
	}

	c.Redirect(http.StatusSeeOther, "/cart")
}

func (h *Handler) handleMutationError(c *gin.Context, err error, target string) {
	switch {
	case errors.Is(err, domain.ErrInvalidItem):
		redirectWithNotice(c, target, noticeInvalidItem, "")
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrIndexOutOfRange):
		redirectWithNotice(c, target, noticeUnknownItem, "")
	default:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Something went wrong, please try again.")
	}
}

func (h *Handler) renderPage(c *gin.Context, page, title string, products []productView) {
	cart := storeFrom(c).Snapshot()

	c.Render(http.StatusOK, render.HTML{
		Template: h.pages[page],
		Name:     "layout",
		Data: pageData{
			Title:    title,
			Shop:     h.shop.Name,
			Notice:   noticeText(c.Query("notice"), h.knownItem(cart, c.Query("item"))),
			Cart:     h.format.cartView(cart),
			Products: products,
		},
	})
}

// knownItem returns name only when it is a catalog product or already in the cart.
func (h *Handler) knownItem(cart domain.Cart, name string) string {
	if _, ok := h.catalog.Lookup(name); ok {
		return name
	}
	if cart.IndexOf(name) >= 0 {
		return name
	}
	return ""
}

func (h *Handler) resolvePrice(req addItemRequest) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(req.Price)
	if raw == "" {
		product, ok := h.catalog.Lookup(req.Name)
		if !ok {
			return decimal.Decimal{}, false
		}
		return product.Price, true
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if err := domain.ValidateUnitPrice(price); err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}

func redirectWithNotice(c *gin.Context, target, notice, item string) {
	query := url.Values{}
	query.Set("notice", notice)
	if item != "" {
		query.Set("item", item)
	}
	c.Redirect(http.StatusSeeOther, target+"?"+query.Encode())
}

// safeReturn only allows local absolute paths.
func safeReturn(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.ContainsAny(target, "?#\\") {
		return "/"
	}
	return target
}
