package order

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/xenking/lunch-orders/internal/domain/customer"
	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/price"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

// PriceSource loads the price list of a single day. *price.Catalog implements it.
type PriceSource interface {
	FindByDate(ctx context.Context, date time.Time) (*price.Set, error)
}

// Draft is the typed, not yet validated input of a new order.
type Draft struct {
	Customer     string
	ShipmentDate time.Time
	Address      string
	Items        []DraftItem
}

// DraftItem is one requested product and quantity.
type DraftItem struct {
	ProductID string
	Quantity  int
}

// Factory is the single validated entry point that turns untrusted input
// into a priced Order in the created state.
//
// Order-level fields fail fast on the first offending field. Line-item
// problems are all collected and returned together (see multierr.Errors).
type Factory struct {
	products  product.Repository
	customers customer.Repository
	prices    PriceSource
	clock     clockwork.Clock
	loc       *time.Location
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLocation sets the time zone that defines "today" for shipment date
// checks. Defaults to UTC.
func WithLocation(loc *time.Location) FactoryOption {
	return func(f *Factory) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// NewFactory creates a Factory with its catalog collaborators and clock.
func NewFactory(
	products product.Repository,
	customers customer.Repository,
	prices PriceSource,
	clock clockwork.Clock,
	opts ...FactoryOption,
) *Factory {
	f := &Factory{
		products:  products,
		customers: customers,
		prices:    prices,
		clock:     clock,
		loc:       time.UTC,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewFromMap validates a decoded request body and builds a new order. It
// expects the keys customer, shipmentDate, address and items, where items is
// a list of {productId, quantity} objects. The order is not persisted.
func (f *Factory) NewFromMap(ctx context.Context, raw map[string]any) (*Order, error) {
	d, err := draftFromMap(raw)
	if err != nil {
		return nil, err
	}
	return f.New(ctx, d)
}

// New validates d, prices every line on the shipment date and returns the
// order in the created state. The order is not persisted.
func (f *Factory) New(ctx context.Context, d Draft) (*Order, error) {
	now := f.clock.Now()

	// Order-level fields: fail fast.
	d.Customer = strings.TrimSpace(d.Customer)
	if d.Customer == "" {
		return nil, errs.Validation("customer", "customer is required")
	}
	if d.ShipmentDate.IsZero() {
		return nil, errs.Validation("shipmentDate", "shipment date is required")
	}
	shipment := daterange.Day(d.ShipmentDate)
	if shipment.Before(daterange.Today(now, f.loc)) {
		return nil, errs.Validation("shipmentDate", "shipment date is in the past")
	}
	d.Address = strings.TrimSpace(d.Address)
	if d.Address == "" {
		return nil, errs.Validation("address", "address is required")
	}
	if len(d.Items) == 0 {
		return nil, errs.Validation("items", "at least one item is required")
	}

	if _, err := f.customers.FindByUsername(ctx, d.Customer); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, errs.Validation("customer", "unknown customer "+d.Customer)
		}
		return nil, errors.Wrap(err, "find customer")
	}

	known, err := f.knownProducts(ctx, d.Items)
	if err != nil {
		return nil, err
	}

	prices, err := f.prices.FindByDate(ctx, shipment)
	if err != nil {
		return nil, errors.Wrap(err, "load prices")
	}

	// Line items: collect every failure, abort if there is any.
	var (
		items    = make([]LineItem, 0, len(d.Items))
		itemErrs error
	)
	for _, it := range d.Items {
		if _, ok := known[it.ProductID]; !ok {
			itemErrs = multierr.Append(itemErrs, &errs.LineItemError{ProductID: it.ProductID, Message: "product not found"})
			continue
		}
		li, err := NewLineItem(it.ProductID, it.Quantity, shipment, prices)
		if err != nil {
			itemErrs = multierr.Append(itemErrs, err)
			continue
		}
		items = append(items, li)
	}
	if itemErrs != nil {
		return nil, itemErrs
	}

	return &Order{
		id:           uuid.New().String(),
		customer:     d.Customer,
		shipmentDate: shipment,
		address:      d.Address,
		status:       StatusCreated,
		items:        items,
		total:        sumTotals(items),
		createdAt:    now.UTC(),
	}, nil
}

func (f *Factory) knownProducts(ctx context.Context, items []DraftItem) (map[string]struct{}, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; !ok && it.ProductID != "" {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}

	fetched, err := f.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	known := make(map[string]struct{}, len(fetched))
	for _, p := range fetched {
		known[p.ID] = struct{}{}
	}
	return known, nil
}

// draftFromMap decodes the loosely typed request body. Order-level fields
// fail fast; malformed items are collected.
func draftFromMap(raw map[string]any) (Draft, error) {
	var d Draft

	c, err := stringField(raw, "customer")
	if err != nil {
		return d, err
	}
	d.Customer = c

	switch v := raw["shipmentDate"].(type) {
	case nil:
		return d, errs.Validation("shipmentDate", "shipment date is required")
	case time.Time:
		d.ShipmentDate = v
	case string:
		if strings.TrimSpace(v) == "" {
			return d, errs.Validation("shipmentDate", "shipment date is required")
		}
		t, err := daterange.ParseDate(strings.TrimSpace(v))
		if err != nil {
			return d, errs.Validation("shipmentDate", err.Error())
		}
		d.ShipmentDate = t
	default:
		return d, errs.Validation("shipmentDate", "shipment date must be a date string")
	}

	a, err := stringField(raw, "address")
	if err != nil {
		return d, err
	}
	d.Address = a

	list, ok := raw["items"].([]any)
	if !ok {
		if raw["items"] == nil {
			return d, errs.Validation("items", "at least one item is required")
		}
		return d, errs.Validation("items", "items must be a list")
	}

	var itemErrs error
	for i, v := range list {
		it, err := draftItem(i, v)
		if err != nil {
			itemErrs = multierr.Append(itemErrs, err)
			continue
		}
		d.Items = append(d.Items, it)
	}
	if itemErrs != nil {
		return d, itemErrs
	}
	return d, nil
}

func stringField(raw map[string]any, name string) (string, error) {
	switch v := raw[name].(type) {
	case nil:
		return "", errs.Validation(name, name+" is required")
	case string:
		return v, nil
	default:
		return "", errs.Validation(name, name+" must be a string")
	}
}

func draftItem(i int, v any) (DraftItem, error) {
	field := fmt.Sprintf("items[%d]", i)
	m, ok := v.(map[string]any)
	if !ok {
		return DraftItem{}, errs.Validation(field, "item must be an object")
	}

	id, err := productID(m["productId"])
	if err != nil {
		return DraftItem{}, errs.Validation(field+".productId", err.Error())
	}
	qty, err := quantity(m["quantity"])
	if err != nil {
		return DraftItem{}, errs.Validation(field+".quantity", err.Error())
	}
	return DraftItem{ProductID: id, Quantity: qty}, nil
}

func productID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
	case json.Number:
		return id.String(), nil
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10), nil
		}
		return "", errors.New("invalid product id")
	case int:
		return strconv.Itoa(id), nil
	}
	return "", errors.New("product id is required")
}

// quantity accepts JSON numbers that hold an integral value. Range checks
// are left to NewLineItem.
func quantity(v any) (int, error) {
	switch q := v.(type) {
	case nil:
		return 0, errors.New("quantity is required")
	case int:
		return q, nil
	case int64:
		return int(q), nil
	case float64:
		if q != math.Trunc(q) || math.Abs(q) > math.MaxInt32 {
			return 0, errors.New("invalid quantity")
		}
		return int(q), nil
	case json.Number:
		n, err := q.Int64()
		if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, errors.New("invalid quantity")
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return 0, errors.New("invalid quantity")
		}
		return n, nil
	default:
		return 0, errors.New("invalid quantity")
	}
}
