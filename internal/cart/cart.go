package cart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fsanano/shopcart/internal/model"

	"github.com/shopspring/decimal"
)

const DefaultTTL = 30 * time.Minute

var DefaultTaxRate = decimal.RequireFromString("0.10")

var (
	ErrInvalidQuantity          = errors.New("quantity must be greater than 0")
	ErrNotInCart                = errors.New("product is not in the cart")
	ErrInsufficientCartQuantity = errors.New("insufficient cart quantity")
	ErrCartExpired              = errors.New("cart has expired")
)

// Stock is the part of the catalog a cart needs. The catalog stays the only
// owner of product records; the cart holds references to them.
type Stock interface {
	Product(ref model.ProductRef) (model.Product, error)
	Take(ref model.ProductRef, qty int) (int, error)
	Restore(ref model.ProductRef, qty int) (int, error)
}

type Line struct {
	Ref      model.ProductRef
	Quantity int
}

type Cart struct {
	mu        sync.Mutex
	stock     Stock
	lines     map[string]*Line
	order     []string
	createdAt time.Time
	ttl       time.Duration
	taxRate   decimal.Decimal
	now       func() time.Time
}

// Option customizes a Cart.
type Option func(*Cart)

// WithTTL sets how long after creation the cart can still be viewed.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cart) {
		c.ttl = ttl
	}
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(c *Cart) {
		c.taxRate = rate
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) {
		c.now = now
	}
}

func New(stock Stock, opts ...Option) *Cart {
	c := &Cart{
		stock:   stock,
		lines:   make(map[string]*Line),
		ttl:     DefaultTTL,
		taxRate: DefaultTaxRate,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.createdAt = c.now()
	return c
}

func (c *Cart) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Cart) TTL() time.Duration {
	return c.ttl
}

// Expired reports whether the cart is older than its TTL. Only View acts on it.
func (c *Cart) Expired() bool {
	return c.now().Sub(c.createdAt) > c.ttl
}

type AddResult struct {
	Product   string `json:"product"`
	Added     int    `json:"added"`
	InCart    int    `json:"in_cart"`
	Available int    `json:"available"`
}

// Add moves qty units of the referenced product from stock into the cart.
// When stock is short nothing changes and the error wraps
// catalog.ErrInsufficientStock.
func (c *Cart) Add(ref model.ProductRef, qty int) (AddResult, error) {
	if qty <= 0 {
		return AddResult{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	available, err := c.stock.Take(ref, qty)
	if err != nil {
		return AddResult{Product: ref.Name, Available: available}, err
	}

	line, ok := c.lines[ref.Name]
	if !ok {
		line = &Line{Ref: ref}
		c.lines[ref.Name] = line
		c.order = append(c.order, ref.Name)
	}
	line.Quantity += qty

	return AddResult{
		Product:   ref.Name,
		Added:     qty,
		InCart:    line.Quantity,
		Available: available,
	}, nil
}

type RemoveResult struct {
	Product   string `json:"product"`
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
}

// Remove returns qty units of the named line to stock. The line is dropped
// once its quantity reaches zero.
func (c *Cart) Remove(name string, qty int) (RemoveResult, error) {
	if qty <= 0 {
		return RemoveResult{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[name]
	if !ok {
		return RemoveResult{Product: name}, fmt.Errorf("%w: %s", ErrNotInCart, name)
	}
	if qty > line.Quantity {
		return RemoveResult{Product: name, Remaining: line.Quantity},
			fmt.Errorf("%w: cannot remove %d x %s, only %d in cart", ErrInsufficientCartQuantity, qty, name, line.Quantity)
	}

	if _, err := c.stock.Restore(line.Ref, qty); err != nil {
		return RemoveResult{Product: name, Remaining: line.Quantity}, fmt.Errorf("failed to restore stock: %w", err)
	}

	line.Quantity -= qty
	if line.Quantity == 0 {
		c.drop(name)
	}

	return RemoveResult{Product: name, Removed: qty, Remaining: line.Quantity}, nil
}

// Lines returns the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.lines[name])
	}
	return out
}

func (c *Cart) drop(name string) {
	delete(c.lines, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
