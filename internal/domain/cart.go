package domain

import (
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
)

const (
	// PriceScale is the number of decimal places a unit price may carry.
	PriceScale = 2

	// exponents outside this range are rejected before any arithmetic on the value
	minPriceExponent = -8
	maxPriceExponent = 8
)

// MaxUnitPrice is the largest unit price a line item may have.
var MaxUnitPrice = decimal.NewFromInt(1_000_000)

// Cart is the ordered list of line items owned by one shopper session.
// Items keep insertion order and Name is unique across them.
type Cart struct {
	OwnerID string
	Items   []CartItem
}

type CartItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c Cart) Clone() Cart {
	clone := Cart{OwnerID: c.OwnerID}
	if len(c.Items) > 0 {
		clone.Items = make([]CartItem, len(c.Items))
		copy(clone.Items, c.Items)
	}
	return clone
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IndexOf returns the position of the item called name, or -1.
func (c Cart) IndexOf(name string) int {
	for i, item := range c.Items {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// Add appends a new item with quantity 1, or bumps the quantity of the item
// already stored under name. The stored unit price of an existing item is kept.
func (c *Cart) Add(name string, unitPrice decimal.Decimal) (CartItem, error) {
	if strings.TrimSpace(name) == "" {
		return CartItem{}, fmt.Errorf("%w: name is empty", ErrInvalidItem)
	}
	if err := ValidateUnitPrice(unitPrice); err != nil {
		return CartItem{}, err
	}

	if idx := c.IndexOf(name); idx >= 0 {
		c.Items[idx].Quantity++
		return c.Items[idx], nil
	}

	item := CartItem{Name: name, UnitPrice: unitPrice, Quantity: 1}
	c.Items = append(c.Items, item)
	return item, nil
}

func (c *Cart) Increment(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.Items[index].Quantity++
	return nil
}

// Decrement lowers the quantity at index, removing the item when it would drop below 1.
func (c *Cart) Decrement(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if c.Items[index].Quantity > 1 {
		c.Items[index].Quantity--
		return nil
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return nil
}

func (c *Cart) Remove(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.Items = nil
}

// TotalCount is the sum of all quantities, not the number of distinct items.
func (c Cart) TotalCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Validate reports whether the cart holds its invariants: non-empty unique names,
// unit prices accepted by ValidateUnitPrice and positive quantities.
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c.Items))
	for i, item := range c.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item[%d] has empty name", ErrInvalidItem, i)
		}
		if err := ValidateUnitPrice(item.UnitPrice); err != nil {
			return fmt.Errorf("item[%s]: %w", item.Name, err)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item[%s] has quantity %d", ErrInvalidItem, item.Name, item.Quantity)
		}
		if _, ok := seen[item.Name]; ok {
			return fmt.Errorf("%w: item[%s] is duplicated", ErrInvalidItem, item.Name)
		}
		seen[item.Name] = struct{}{}
	}
	return nil
}

// ValidateUnitPrice accepts prices from 0 to MaxUnitPrice with at most PriceScale
// decimal places. The value is never formatted into the error.
func ValidateUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price is negative", ErrInvalidItem)
	}
	if exp := price.Exponent(); exp < minPriceExponent || exp > maxPriceExponent {
		return fmt.Errorf("%w: price is out of range", ErrInvalidItem)
	}
	if price.GreaterThan(MaxUnitPrice) {
		return fmt.Errorf("%w: price is above %s", ErrInvalidItem, MaxUnitPrice)
	}
	if !price.Equal(price.Round(PriceScale)) {
		return fmt.Errorf("%w: price has more than %d decimal places", ErrInvalidItem, PriceScale)
	}
	return nil
}

func (c Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.Items) {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, len(c.Items))
	}
	return nil
}
