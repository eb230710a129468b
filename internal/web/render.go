package web

import (
	"embed"
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/catalog"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/shopspring/decimal"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	pageCatalog  = "catalog"
	pageCart     = "cart"
	pageCheckout = "checkout"
)

const (
	noticeAdded            = "added"
	noticeCartEmpty        = "cart_empty"
	noticeThankYou         = "thank_you"
	noticeOrderPlaced      = "order_placed"
	noticeInvalidItem      = "invalid_item"
	noticeUnknownItem      = "unknown_item"
	noticeShippingRequired = "shipping_required"
)

var notices = map[string]string{
	noticeAdded:            "%s added to cart!",
	noticeCartEmpty:        "Your cart is empty!",
	noticeThankYou:         "Thank you for your order! 🥐",
	noticeOrderPlaced:      "🎉 Thank you! Your order has been placed successfully.",
	noticeInvalidItem:      "That item could not be added.",
	noticeUnknownItem:      "That item is no longer in your cart.",
	noticeShippingRequired: "Please fill in your name, address and phone.",
}

func noticeText(code, item string) string {
	format, ok := notices[code]
	if !ok {
		return ""
	}
	if code == noticeAdded {
		if item == "" {
			return ""
		}
		return fmt.Sprintf(format, item)
	}
	return format
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)

	for _, page := range []string{pageCatalog, pageCart, pageCheckout} {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("template.ParseFS[%s]: %w", page, err)
		}
		pages[page] = t
	}

	return pages, nil
}

type pageData struct {
	Title    string
	Shop     string
	Notice   string
	Cart     cartView
	Products []productView
}

type productView struct {
	Name        string
	Description string
	Price       string
	RawPrice    string
}

type lineView struct {
	Name      string
	UnitPrice string
	Quantity  int
	LineTotal string
}

type cartView struct {
	Items []lineView
	Count int
	Total string
	Empty bool
}

// cartSummary is the JSON shape of the badge stream and the snapshot API.
type cartSummary struct {
	Items         []summaryItem `json:"items"`
	Count         int           `json:"count"`
	Total         string        `json:"total"`
	Currency      string        `json:"currency"`
	CheckoutState string        `json:"checkout_state,omitempty"`
}

type summaryItem struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// formatter renders amounts as a fixed symbol followed by the plain decimal, e.g. ₹420.
type formatter struct {
	symbol string
}

func (f formatter) money(amount decimal.Decimal) string {
	return f.symbol + amount.String()
}

func (f formatter) cartView(cart domain.Cart) cartView {
	view := cartView{
		Count: cart.TotalCount(),
		Total: f.money(cart.TotalPrice()),
		Empty: cart.IsEmpty(),
	}

	for _, item := range cart.Items {
		view.Items = append(view.Items, lineView{
			Name:      item.Name,
			UnitPrice: f.money(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: f.money(item.LineTotal()),
		})
	}

	return view
}

func (f formatter) productViews(products []catalog.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{
			Name:        p.Name,
			Description: p.Description,
			Price:       f.money(p.Price),
			RawPrice:    p.Price.String(),
		})
	}
	return views
}

func (f formatter) summary(cart domain.Cart, currencyCode string) cartSummary {
	summary := cartSummary{
		Items:    make([]summaryItem, 0, len(cart.Items)),
		Count:    cart.TotalCount(),
		Total:    f.money(cart.TotalPrice()),
		Currency: currencyCode,
	}

	for _, item := range cart.Items {
		summary.Items = append(summary.Items, summaryItem{
			Name:      item.Name,
			Price:     item.UnitPrice,
			Qty:       item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}

	return summary
}
