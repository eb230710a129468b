package port

import (
	"context"
	"github.com/nikolayk812/bakery-cart/internal/domain"
)

// CartRepository persists a whole cart per owner.
// GetCart returns an empty cart when nothing is stored and
// wraps domain.ErrCorruptState when the stored value cannot be decoded.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart) error
}
