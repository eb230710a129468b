package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

// storageEntry is a local key/value row, one per owner and key.
type storageEntry struct {
	OwnerID    string `gorm:"primaryKey;size:64"`
	StorageKey string `gorm:"primaryKey;size:64"`
	Value      string `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

func (storageEntry) TableName() string {
	return "storage_entries"
}

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLite stores carts as JSON entries in a gorm database, normally a local sqlite file.
func NewSQLite(db *gorm.DB) (port.CartRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	if err := db.AutoMigrate(&storageEntry{}); err != nil {
		return nil, fmt.Errorf("db.AutoMigrate: %w", err)
	}

	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, domain.ErrOwnerIDEmpty
	}

	var entry storageEntry
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND storage_key = ?", ownerID, StorageKey).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Cart{OwnerID: ownerID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("db.First: %w", err)
	}

	items, err := decodeItems([]byte(entry.Value))
	if err != nil {
		return domain.Cart{}, err
	}

	return domain.Cart{OwnerID: ownerID, Items: items}, nil
}

func (r *sqliteRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if cart.OwnerID == "" {
		return domain.ErrOwnerIDEmpty
	}

	data, err := encodeItems(cart.Items)
	if err != nil {
		return err
	}

	entry := storageEntry{
		OwnerID:    cart.OwnerID,
		StorageKey: StorageKey,
		Value:      string(data),
		UpdatedAt:  time.Now().UTC(),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("db.Create: %w", err)
	}

	return nil
}
