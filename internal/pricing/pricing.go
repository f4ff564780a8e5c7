// Package pricing computes unit prices, quotes and order summaries for the
// delegate workflow. Everything here is pure; callers load the catalog rows.
package pricing

import (
	"fmt"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

// Item is a resolved selection: the catalog rows plus the chosen quantity
type Item struct {
	Product  *domain.Product
	Option   *domain.ProductOption
	Quantity int
}

// Line is a priced order line
type Line struct {
	Product   *domain.Product
	Option    *domain.ProductOption
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// Quote is the derived pricing of a selection
type Quote struct {
	Lines          []Line
	Subtotal       int64
	DeliveryMethod domain.DeliveryMethod
	ShippingFee    int64
	Total          int64
}

// UnitPrice returns the option override when set, else product price plus option delta
func UnitPrice(product *domain.Product, option *domain.ProductOption) int64 {
	if option == nil {
		return product.Price
	}
	if option.PriceOverride != nil {
		return *option.PriceOverride
	}
	return product.Price + option.PriceDelta
}

// NewQuote prices the items and adds the shipping fee of the delivery method
func NewQuote(items []Item, method domain.DeliveryMethod) (*Quote, error) {
	if !method.IsValid() {
		return nil, errors.Validation("delivery_method", fmt.Sprintf("unknown delivery method %q", method))
	}

	q := &Quote{
		Lines:          make([]Line, 0, len(items)),
		DeliveryMethod: method,
		ShippingFee:    method.ShippingFee(),
	}
	for _, it := range items {
		if it.Product == nil {
			return nil, errors.Validation("items", "product is required")
		}
		if it.Quantity < 1 {
			return nil, errors.Validation("quantity", "quantity must be at least 1")
		}
		if it.Option != nil && it.Option.ProductID != it.Product.ID {
			return nil, errors.Validation("option_id", fmt.Sprintf("option %s does not belong to product %s", it.Option.ID, it.Product.ID))
		}

		unit := UnitPrice(it.Product, it.Option)
		line := Line{
			Product:   it.Product,
			Option:    it.Option,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: unit * int64(it.Quantity),
		}
		q.Lines = append(q.Lines, line)
		q.Subtotal += line.LineTotal
	}
	q.Total = q.Subtotal + q.ShippingFee
	return q, nil
}
