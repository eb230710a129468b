package domain

import (
	"fmt"
	"github.com/google/uuid"
	"strings"
	"time"
)

type CheckoutState int

const (
	CheckoutPending CheckoutState = iota
	CheckoutConfirmed
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutPending:
		return "pending"
	case CheckoutConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("CheckoutState(%d)", int(s))
	}
}

// ShippingDetails are collected by the checkout form. Only presence is checked.
type ShippingDetails struct {
	FullName string
	Address  string
	Phone    string
}

func (d ShippingDetails) Validate() error {
	var missing []string
	if strings.TrimSpace(d.FullName) == "" {
		missing = append(missing, "full name")
	}
	if strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidShipping, strings.Join(missing, ", "))
	}
	return nil
}

// Confirmation is what the shopper gets back once checkout is confirmed.
// No payment is taken.
type Confirmation struct {
	OrderID     uuid.UUID
	OwnerID     string
	Items       []CartItem
	Total       Money
	Shipping    ShippingDetails
	ConfirmedAt time.Time
}
