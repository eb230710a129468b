package repository

import (
	"encoding/json"
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/shopspring/decimal"
)

// StorageKey is the well-known key the cart is stored under for every owner.
const StorageKey = "cart"

// storedItem is the persisted layout: [{"name": ..., "price": ..., "qty": ...}].
type storedItem struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Qty   int         `json:"qty"`
}

func encodeItems(items []domain.CartItem) ([]byte, error) {
	stored := make([]storedItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, storedItem{
			Name:  item.Name,
			Price: json.Number(item.UnitPrice.String()),
			Qty:   item.Quantity,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return data, nil
}

func decodeItems(data []byte) ([]domain.CartItem, error) {
	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptState, err)
	}

	var items []domain.CartItem
	for _, s := range stored {
		price, err := decimal.NewFromString(s.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: price[%s] of item[%s]: %w", domain.ErrCorruptState, s.Price, s.Name, err)
		}

		items = append(items, domain.CartItem{
			Name:      s.Name,
			UnitPrice: price,
			Quantity:  s.Qty,
		})
	}

	if err := (domain.Cart{Items: items}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptState, err)
	}

	return items, nil
}
