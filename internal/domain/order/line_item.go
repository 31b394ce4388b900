package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/price"
)

// PriceLookup resolves the authoritative price of a product on a date.
// *price.Set implements it.
type PriceLookup interface {
	PriceOf(productID string, date time.Time) (price.Price, error)
}

// LineItem is one priced product line of an order.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// NewLineItem validates the quantity and prices the line from lookup using
// the shipment date.
func NewLineItem(productID string, quantity int, shipmentDate time.Time, lookup PriceLookup) (LineItem, error) {
	if quantity <= 0 {
		return LineItem{}, errs.Validation("quantity", "invalid quantity")
	}

	p, err := lookup.PriceOf(productID, shipmentDate)
	if err != nil {
		var nfErr *errs.NotFoundError
		if errors.As(err, &nfErr) {
			return LineItem{}, &errs.LineItemError{ProductID: productID, Message: "no price for product on date"}
		}
		return LineItem{}, errors.Wrapf(err, "price product %s", productID)
	}

	return LineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: p.Amount,
		Total:     p.Amount.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

func sumTotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return total
}
