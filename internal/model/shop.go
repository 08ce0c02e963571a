package model

import "github.com/shopspring/decimal"

type User struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"-"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
}

type Product struct {
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Discount          decimal.Decimal `json:"discount"` // percentage, 0-100
	AvailableQuantity int             `json:"available_quantity"`
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns the unit price after the percentage discount.
// No rounding is applied.
func (p Product) DiscountedPrice() decimal.Decimal {
	return p.Price.Sub(p.Price.Mul(p.Discount.Div(hundred)))
}

type Shop struct {
	Name       string
	Categories [CategoryCount][]*Product
}

func NewShop(name string) *Shop {
	return &Shop{Name: name}
}

// Products returns the list for c, or nil when c is not a known category.
func (s *Shop) Products(c Category) []*Product {
	if !c.Valid() {
		return nil
	}
	return s.Categories[c.index()]
}

// Add appends p to the list for c. It is a no-op for an unknown category.
func (s *Shop) Add(c Category, p *Product) {
	if !c.Valid() {
		return
	}
	s.Categories[c.index()] = append(s.Categories[c.index()], p)
}

// ProductRef identifies a product by where it lives in the catalog.
type ProductRef struct {
	Shop     string   `json:"shop"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
}

func (r ProductRef) String() string {
	return r.Shop + "/" + r.Category.Slug() + "/" + r.Name
}
