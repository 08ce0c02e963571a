package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ReceiptLine struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Amount    decimal.Decimal `json:"amount"`
}

type Receipt struct {
	Lines    []ReceiptLine   `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (r Receipt) Empty() bool {
	return len(r.Lines) == 0
}

// View prices every line at its discounted unit price and adds the sales tax
// once on the subtotal. An expired cart is not priced at all.
func (c *Cart) View() (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Expired() {
		return Receipt{}, ErrCartExpired
	}

	receipt := Receipt{
		Lines:    make([]ReceiptLine, 0, len(c.order)),
		Subtotal: decimal.Zero,
		TaxRate:  c.taxRate,
	}
	for _, name := range c.order {
		line := c.lines[name]
		p, err := c.stock.Product(line.Ref)
		if err != nil {
			return Receipt{}, fmt.Errorf("failed to price %s: %w", name, err)
		}

		unit := p.DiscountedPrice()
		amount := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			Product:   p.Name,
			Quantity:  line.Quantity,
			UnitPrice: unit,
			Discount:  p.Discount,
			Amount:    amount,
		})
		receipt.Subtotal = receipt.Subtotal.Add(amount)
	}

	receipt.Tax = receipt.Subtotal.Mul(c.taxRate)
	receipt.Total = receipt.Subtotal.Add(receipt.Tax)
	return receipt, nil
}
