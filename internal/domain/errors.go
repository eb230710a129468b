package domain

import "errors"

var (
	ErrOwnerIDEmpty    = errors.New("ownerID is empty")
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrIndexOutOfRange = errors.New("cart index out of range")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidShipping = errors.New("invalid shipping details")
	ErrCorruptState    = errors.New("persisted cart is corrupt")
)
