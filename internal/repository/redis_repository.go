package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"github.com/redis/go-redis/v9"
	"strings"
)

const defaultRedisPrefix = "bakery"

type redisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedis stores carts as JSON strings under "<prefix>:<ownerID>:cart" without expiry.
func NewRedis(client *redis.Client, prefix string) port.CartRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &redisRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *redisRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, domain.ErrOwnerIDEmpty
	}

	data, err := r.client.Get(ctx, r.key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{OwnerID: ownerID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("client.Get: %w", err)
	}

	items, err := decodeItems(data)
	if err != nil {
		return domain.Cart{}, err
	}

	return domain.Cart{OwnerID: ownerID, Items: items}, nil
}

func (r *redisRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if cart.OwnerID == "" {
		return domain.ErrOwnerIDEmpty
	}

	data, err := encodeItems(cart.Items)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(cart.OwnerID), data, 0).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func (r *redisRepository) key(ownerID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, entryKey(ownerID))
}
