package repository

import (
	"context"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory keeps encoded carts in process memory. State is lost on restart.
func NewMemory() port.CartRepository {
	return &memoryRepository{
		entries: make(map[string][]byte),
	}
}

func (r *memoryRepository) GetCart(_ context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, domain.ErrOwnerIDEmpty
	}

	r.mu.RLock()
	data, ok := r.entries[entryKey(ownerID)]
	r.mu.RUnlock()

	if !ok {
		return domain.Cart{OwnerID: ownerID}, nil
	}

	items, err := decodeItems(data)
	if err != nil {
		return domain.Cart{}, err
	}

	return domain.Cart{OwnerID: ownerID, Items: items}, nil
}

func (r *memoryRepository) SaveCart(_ context.Context, cart domain.Cart) error {
	if cart.OwnerID == "" {
		return domain.ErrOwnerIDEmpty
	}

	data, err := encodeItems(cart.Items)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entries[entryKey(cart.OwnerID)] = data
	r.mu.Unlock()

	return nil
}

func entryKey(ownerID string) string {
	return ownerID + ":" + StorageKey
}
