package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"fsanano/shopcart/internal/model"
)

var (
	ErrUnknownShop       = errors.New("unknown shop")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
)

// Catalog owns every shop and product. Callers only ever get copies of a
// product; stock changes go through Take and Restore.
type Catalog struct {
	mu    sync.RWMutex
	shops []*model.Shop
}

func New(shops ...*model.Shop) *Catalog {
	return &Catalog{shops: shops}
}

// ShopNames returns the shop names in seed order.
func (c *Catalog) ShopNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.shops))
	for _, s := range c.shops {
		names = append(names, s.Name)
	}
	return names
}

// ProductsByCategory returns a snapshot of a shop's category list. An unknown
// shop or a category id outside 1..11 yields an empty list, not an error.
func (c *Catalog) ProductsByCategory(shop string, categoryID int) []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.shop(shop)
	if s == nil {
		return []model.Product{}
	}

	list := s.Products(model.Category(categoryID))
	out := make([]model.Product, 0, len(list))
	for _, p := range list {
		out = append(out, *p)
	}
	return out
}

// FindProduct looks a product up by name, ignoring case.
func (c *Catalog) FindProduct(shop string, category model.Category, name string) (model.ProductRef, model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.shop(shop)
	if s == nil {
		return model.ProductRef{}, model.Product{}, fmt.Errorf("%w: %s", ErrUnknownShop, shop)
	}
	for _, p := range s.Products(category) {
		if strings.EqualFold(p.Name, name) {
			return model.ProductRef{Shop: s.Name, Category: category, Name: p.Name}, *p, nil
		}
	}
	return model.ProductRef{}, model.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
}

func (c *Catalog) Product(ref model.ProductRef) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.lookup(ref)
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

// Take removes qty units from the product's available quantity and returns
// what is left. Stock is untouched when qty exceeds it.
func (c *Catalog) Take(ref model.ProductRef, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.lookup(ref)
	if err != nil {
		return 0, err
	}
	if qty > p.AvailableQuantity {
		return p.AvailableQuantity, fmt.Errorf("%w: cannot take %d x %s, only %d available",
			ErrInsufficientStock, qty, p.Name, p.AvailableQuantity)
	}
	p.AvailableQuantity -= qty
	return p.AvailableQuantity, nil
}

// Restore puts qty units back and returns the new available quantity.
func (c *Catalog) Restore(ref model.ProductRef, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.lookup(ref)
	if err != nil {
		return 0, err
	}
	p.AvailableQuantity += qty
	return p.AvailableQuantity, nil
}

func (c *Catalog) shop(name string) *model.Shop {
	for _, s := range c.shops {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

func (c *Catalog) lookup(ref model.ProductRef) (*model.Product, error) {
	s := c.shop(ref.Shop)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShop, ref.Shop)
	}
	for _, p := range s.Products(ref.Category) {
		if p.Name == ref.Name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
}
