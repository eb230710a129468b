package catalog

import (
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/config"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/shopspring/decimal"
	"strings"
)

type Product struct {
	Name        string
	Price       decimal.Decimal
	Description string
}

// Catalog is the fixed list of products offered on the storefront, in display order.
type Catalog struct {
	products []Product
	byName   map[string]int
}

func New(items []config.ProductItem) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]int, len(items)),
	}

	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog item has empty name")
		}
		if _, ok := c.byName[name]; ok {
			return nil, fmt.Errorf("catalog item[%s] is duplicated", name)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(item.Price))
		if err != nil {
			return nil, fmt.Errorf("catalog item[%s] price[%s]: %w", name, item.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("catalog item[%s] price[%s] is negative", name, item.Price)
		}
		if err := domain.ValidateUnitPrice(price); err != nil {
			return nil, fmt.Errorf("catalog item[%s] price[%s]: %w", name, item.Price, err)
		}

		c.byName[name] = len(c.products)
		c.products = append(c.products, Product{
			Name:        name,
			Price:       price,
			Description: item.Description,
		})
	}

	return c, nil
}

func (c *Catalog) Products() []Product {
	products := make([]Product, len(c.products))
	copy(products, c.products)
	return products
}

func (c *Catalog) Lookup(name string) (Product, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}
