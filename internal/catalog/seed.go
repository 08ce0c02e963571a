package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fsanano/shopcart/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Shops []seedShop `yaml:"shops"`
}

type seedShop struct {
	Name       string                   `yaml:"name"`
	Categories map[string][]seedProduct `yaml:"categories"`
}

type seedProduct struct {
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Discount string `yaml:"discount"`
	Quantity int    `yaml:"quantity"`
}

// Default returns a catalog built from the embedded seed data.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultSeed))
}

// LoadFile builds a catalog from a YAML file in the seed format.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) (*Catalog, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	shops := make([]*model.Shop, 0, len(seed.Shops))
	seen := make(map[string]bool)
	for _, ss := range seed.Shops {
		name := strings.TrimSpace(ss.Name)
		if name == "" {
			return nil, errors.New("shop name must not be empty")
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("duplicate shop %q", name)
		}
		seen[strings.ToLower(name)] = true

		shop := model.NewShop(name)
		for key, products := range ss.Categories {
			category, err := model.ParseCategory(key)
			if err != nil {
				return nil, fmt.Errorf("shop %q: %w", name, err)
			}
			if len(shop.Products(category)) > 0 {
				return nil, fmt.Errorf("shop %q: category %s listed twice", name, category.Slug())
			}
			for _, sp := range products {
				p, err := sp.product()
				if err != nil {
					return nil, fmt.Errorf("shop %q, %s: %w", name, category, err)
				}
				for _, existing := range shop.Products(category) {
					if strings.EqualFold(existing.Name, p.Name) {
						return nil, fmt.Errorf("shop %q, %s: duplicate product %q", name, category, p.Name)
					}
				}
				shop.Add(category, p)
			}
		}
		shops = append(shops, shop)
	}

	return New(shops...), nil
}

func (sp seedProduct) product() (*model.Product, error) {
	name := strings.TrimSpace(sp.Name)
	if name == "" {
		return nil, errors.New("product name must not be empty")
	}

	price, err := decimal.NewFromString(sp.Price)
	if err != nil {
		return nil, fmt.Errorf("product %q: invalid price %q", name, sp.Price)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("product %q: price must not be negative", name)
	}

	discount := decimal.Zero
	if sp.Discount != "" {
		discount, err = decimal.NewFromString(sp.Discount)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid discount %q", name, sp.Discount)
		}
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("product %q: discount must be within 0-100", name)
	}

	if sp.Quantity < 0 {
		return nil, fmt.Errorf("product %q: quantity must not be negative", name)
	}

	return &model.Product{
		Name:              name,
		Price:             price,
		Discount:          discount,
		AvailableQuantity: sp.Quantity,
	}, nil
}
