package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Category ids are 1-based and match the menu numbering.
type Category int

const (
	Electronics Category = iota + 1
	Clothing
	Footwear
	HomeAppliances
	BeautyProducts
	SportsGear
	Toys
	Books
	Groceries
	HealthSupplements
	OfficeSupplies
)

const CategoryCount = int(OfficeSupplies)

var categoryNames = [CategoryCount]string{
	"Electronics",
	"Clothing",
	"Footwear",
	"Home Appliances",
	"Beauty Products",
	"Sports Gear",
	"Toys",
	"Books",
	"Groceries",
	"Health Supplements",
	"Office Supplies",
}

var categorySlugs = [CategoryCount]string{
	"electronics",
	"clothing",
	"footwear",
	"home_appliances",
	"beauty_products",
	"sports_gear",
	"toys",
	"books",
	"groceries",
	"health_supplements",
	"office_supplies",
}

// Categories lists every category in menu order.
func Categories() []Category {
	out := make([]Category, 0, CategoryCount)
	for c := Electronics; c <= OfficeSupplies; c++ {
		out = append(out, c)
	}
	return out
}

func (c Category) Valid() bool {
	return c >= Electronics && c <= OfficeSupplies
}

func (c Category) index() int {
	return int(c) - 1
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c.index()]
}

func (c Category) Slug() string {
	if !c.Valid() {
		return ""
	}
	return categorySlugs[c.index()]
}

// ParseCategory accepts a slug ("home_appliances"), a display name
// ("Home Appliances") or a menu id ("4").
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for i := range categorySlugs {
		if strings.EqualFold(s, categorySlugs[i]) || strings.EqualFold(s, categoryNames[i]) {
			return Category(i + 1), nil
		}
	}
	if id, err := strconv.Atoi(s); err == nil && Category(id).Valid() {
		return Category(id), nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(c.Slug()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
