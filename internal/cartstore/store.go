package cartstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/logger"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"sync"
	"time"
)

type Op string

const (
	OpAdd       Op = "add"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
	OpRemove    Op = "remove"
	OpClear     Op = "clear"
	OpCheckout  Op = "checkout"
)

// Event is delivered to listeners after a mutation has been persisted.
type Event struct {
	Op   Op
	Name string
	Cart domain.Cart
}

// Listener must not call mutating Store methods; reading is fine.
type Listener func(Event)

type Option func(*Store)

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

// WithListener subscribes l for the whole lifetime of the store.
// It does not count as a watcher.
func WithListener(l Listener) Option {
	return func(s *Store) {
		s.subscribe(l, false)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store owns one shopper's cart. Every mutation is validated, persisted and only
// then applied in memory, so a failed write leaves the cart untouched.
type Store struct {
	ownerID  string
	repo     port.CartRepository
	currency currency.Unit
	now      func() time.Time

	mu    sync.Mutex
	cart  domain.Cart
	state domain.CheckoutState

	// notifyMu keeps listener calls in mutation order without holding mu.
	notifyMu    sync.Mutex
	listenersMu sync.RWMutex
	listeners   []subscription
	nextID      int
	watchers    int
}

type subscription struct {
	id      int
	fn      Listener
	watcher bool
}

// Open loads the owner's cart, starting empty when nothing is stored or the
// stored value is corrupt.
func Open(ctx context.Context, repo port.CartRepository, ownerID string, opts ...Option) (*Store, error) {
	if ownerID == "" {
		return nil, domain.ErrOwnerIDEmpty
	}

	s := &Store{
		ownerID:  ownerID,
		repo:     repo,
		currency: currency.INR,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cart, err := repo.GetCart(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrCorruptState):
		logger.Warnw("cart_state_corrupt", "owner_id", ownerID, "error", err)
		cart = domain.Cart{OwnerID: ownerID}
	case err != nil:
		return nil, fmt.Errorf("repo.GetCart: %w", err)
	}

	s.cart = cart
	return s, nil
}

func (s *Store) OwnerID() string {
	return s.ownerID
}

// Subscribe registers l and returns a func that removes it. The store counts
// as watched until every such listener is removed.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	return s.subscribe(l, true)
}

// Watched reports whether a listener added with Subscribe is still registered.
func (s *Store) Watched() bool {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	return s.watchers > 0
}

func (s *Store) subscribe(l Listener, watcher bool) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: l, watcher: watcher})
	if watcher {
		s.watchers++
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()

			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					if sub.watcher {
						s.watchers--
					}
					return
				}
			}
		})
	}
}

func (s *Store) AddItem(ctx context.Context, name string, unitPrice decimal.Decimal) error {
	return s.mutate(ctx, OpAdd, name, func(c *domain.Cart) error {
		if err := domain.ValidateUnitPrice(unitPrice); err != nil {
			return err
		}
		if idx := c.IndexOf(name); idx >= 0 && !c.Items[idx].UnitPrice.Equal(unitPrice) {
			logger.Warnw("cart_price_mismatch",
				"owner_id", c.OwnerID,
				"name", name,
				"stored_price", c.Items[idx].UnitPrice.String(),
				"given_price", unitPrice.String(),
			)
		}

		_, err := c.Add(name, unitPrice)
		return err
	})
}

func (s *Store) Increment(ctx context.Context, index int) error {
	return s.mutate(ctx, OpIncrement, "", func(c *domain.Cart) error {
		return c.Increment(index)
	})
}

func (s *Store) Decrement(ctx context.Context, index int) error {
	return s.mutate(ctx, OpDecrement, "", func(c *domain.Cart) error {
		return c.Decrement(index)
	})
}

func (s *Store) Remove(ctx context.Context, index int) error {
	return s.mutate(ctx, OpRemove, "", func(c *domain.Cart) error {
		return c.Remove(index)
	})
}

func (s *Store) IncrementItem(ctx context.Context, name string) error {
	return s.mutate(ctx, OpIncrement, name, func(c *domain.Cart) error {
		idx, err := indexOf(c, name)
		if err != nil {
			return err
		}
		return c.Increment(idx)
	})
}

func (s *Store) DecrementItem(ctx context.Context, name string) error {
	return s.mutate(ctx, OpDecrement, name, func(c *domain.Cart) error {
		idx, err := indexOf(c, name)
		if err != nil {
			return err
		}
		return c.Decrement(idx)
	})
}

func (s *Store) RemoveItem(ctx context.Context, name string) error {
	return s.mutate(ctx, OpRemove, name, func(c *domain.Cart) error {
		idx, err := indexOf(c, name)
		if err != nil {
			return err
		}
		return c.Remove(idx)
	})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, "", func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// Checkout handles the direct checkout button: an empty cart is rejected.
func (s *Store) Checkout(ctx context.Context) (domain.Confirmation, error) {
	return s.confirm(ctx, nil)
}

// ConfirmCheckout handles the checkout form. Shipping fields are only checked
// for presence; the cart is emptied and the state becomes confirmed.
func (s *Store) ConfirmCheckout(ctx context.Context, shipping domain.ShippingDetails) (domain.Confirmation, error) {
	if err := shipping.Validate(); err != nil {
		return domain.Confirmation{}, err
	}
	return s.confirm(ctx, &shipping)
}

func (s *Store) confirm(ctx context.Context, shipping *domain.ShippingDetails) (domain.Confirmation, error) {
	var confirmation domain.Confirmation

	err := s.mutate(ctx, OpCheckout, "", func(c *domain.Cart) error {
		if shipping == nil && c.IsEmpty() {
			return domain.ErrEmptyCart
		}

		confirmation = domain.Confirmation{
			OrderID:     uuid.New(),
			OwnerID:     c.OwnerID,
			Items:       c.Clone().Items,
			Total:       domain.Money{Amount: c.TotalPrice(), Currency: s.currency},
			ConfirmedAt: s.now().UTC(),
		}
		if shipping != nil {
			confirmation.Shipping = *shipping
		}

		c.Clear()
		return nil
	})
	if err != nil {
		return domain.Confirmation{}, err
	}

	return confirmation, nil
}

// Items returns a copy of the current line items.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Clone().Items
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Clone()
}

func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.TotalCount()
}

func (s *Store) TotalPrice() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Money{Amount: s.cart.TotalPrice(), Currency: s.currency}
}

func (s *Store) CheckoutState() domain.CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Store) Currency() currency.Unit {
	return s.currency
}

func (s *Store) mutate(ctx context.Context, op Op, name string, fn func(c *domain.Cart) error) error {
	s.mu.Lock()

	next := s.cart.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.SaveCart(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("repo.SaveCart: %w", err)
	}

	s.cart = next
	if op == OpCheckout {
		s.state = domain.CheckoutConfirmed
	} else {
		s.state = domain.CheckoutPending
	}

	event := Event{Op: op, Name: name, Cart: next.Clone()}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.notify(event)
	return nil
}

func (s *Store) notify(event Event) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		listeners = append(listeners, sub.fn)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

func indexOf(c *domain.Cart, name string) (int, error) {
	idx := c.IndexOf(name)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrItemNotFound, name)
	}
	return idx, nil
}
