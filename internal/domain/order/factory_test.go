package order

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/xenking/lunch-orders/internal/domain/customer"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/price"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products map[string]product.Product
	err      error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCustomerRepo struct {
	customers map[string]customer.Customer
}

func (m *mockCustomerRepo) FindByUsername(_ context.Context, username string) (*customer.Customer, error) {
	c, ok := m.customers[username]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

type mockPriceSource struct {
	prices []price.Price
	err    error
}

func (m *mockPriceSource) FindByDate(_ context.Context, date time.Time) (*price.Set, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []price.Price
	for _, p := range m.prices {
		if p.Date.Equal(date) {
			out = append(out, p)
		}
	}
	return price.NewSet(out)
}

// --- Helpers ---

// now is Monday 2025-06-02, 10:00 UTC.
var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func date(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestFactory prices bread at 3.50 and soup at 6.00 on June 3rd, and
// soup only at 6.50 on June 4th.
func newTestFactory(clock clockwork.Clock) *Factory {
	products := &mockProductRepo{products: map[string]product.Product{
		"bread": {ID: "bread", Name: "Bread", Category: "bakery"},
		"soup":  {ID: "soup", Name: "Miso soup", Category: "soup"},
	}}
	customers := &mockCustomerRepo{customers: map[string]customer.Customer{
		"alice": {Username: "alice", FullName: "Alice Example", ClientID: 1},
	}}
	prices := &mockPriceSource{prices: []price.Price{
		{ProductID: "bread", Date: date(3), Amount: dec("3.50")},
		{ProductID: "soup", Date: date(3), Amount: dec("6.00")},
		{ProductID: "soup", Date: date(4), Amount: dec("6.50")},
	}}
	return NewFactory(products, customers, prices, clock)
}

func validDraft() Draft {
	return Draft{
		Customer:     "alice",
		ShipmentDate: date(3),
		Address:      "Floor 4, desk 12",
		Items: []DraftItem{
			{ProductID: "bread", Quantity: 2},
			{ProductID: "soup", Quantity: 1},
		},
	}
}

// --- Tests ---

func TestFactory_New(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(now))

	o, err := f.New(context.Background(), validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID())
	assert.Equal(t, "alice", o.Customer())
	assert.Equal(t, date(3), o.ShipmentDate())
	assert.Equal(t, StatusCreated, o.Status())
	assert.True(t, dec("13.00").Equal(o.Total()), "total = %s", o.Total())
	assert.Equal(t, int64(0), o.Version())
	assert.Equal(t, now, o.CreatedAt())
	assert.Empty(t, o.Transactions())

	items := o.Items()
	require.Len(t, items, 2)
	assert.True(t, dec("3.50").Equal(items[0].UnitPrice))
	assert.True(t, dec("7.00").Equal(items[0].Total))
	assert.True(t, dec("6.00").Equal(items[1].Total))
}

func TestFactory_New_PricesOnShipmentDate(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(now))

	d := validDraft()
	d.ShipmentDate = date(4)
	d.Items = []DraftItem{{ProductID: "soup", Quantity: 1}}

	o, err := f.New(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, dec("6.50").Equal(o.Total()))
}

func TestFactory_New_Lifecycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	f := newTestFactory(clock)

	o, err := f.New(context.Background(), validDraft())
	require.NoError(t, err)

	payment, err := o.Pay(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, TransactionPayment, payment.Type)
	assert.True(t, dec("13.00").Equal(payment.Amount))

	cancellation, err := o.Cancel("meeting moved", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, TransactionCancellation, cancellation.Type)
	assert.True(t, dec("13.00").Equal(cancellation.Amount))

	_, err = o.Pay(clock.Now())
	var stErr *errs.StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "canceled", stErr.Status)
	assert.Len(t, o.Transactions(), 2)
}

func TestFactory_New_ShipmentDateToday(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)))

	_, err := f.New(context.Background(), validDraft())
	require.NoError(t, err)
}

func TestFactory_New_ShipmentDateInPast(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(time.Date(2025, 6, 4, 0, 30, 0, 0, time.UTC)))

	_, err := f.New(context.Background(), validDraft())

	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "shipmentDate", vErr.Field)
}

func TestFactory_New_BusinessTimezone(t *testing.T) {
	// 2025-06-03 16:00 UTC is already June 4th in Tokyo.
	tokyo := time.FixedZone("JST", 9*60*60)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 3, 16, 0, 0, 0, time.UTC))

	utc := newTestFactory(clock)
	_, err := utc.New(context.Background(), validDraft())
	require.NoError(t, err)

	jst := newTestFactory(clock)
	WithLocation(tokyo)(jst)
	_, err = jst.New(context.Background(), validDraft())
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "shipmentDate", vErr.Field)
}

func TestFactory_New_OrderLevelValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Draft)
		field  string
	}{
		{"missing customer", func(d *Draft) { d.Customer = "  " }, "customer"},
		{"unknown customer", func(d *Draft) { d.Customer = "mallory" }, "customer"},
		{"missing shipment date", func(d *Draft) { d.ShipmentDate = time.Time{} }, "shipmentDate"},
		{"missing address", func(d *Draft) { d.Address = "" }, "address"},
		{"no items", func(d *Draft) { d.Items = nil }, "items"},
	}

	f := newTestFactory(clockwork.NewFakeClockAt(now))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.modify(&d)

			_, err := f.New(context.Background(), d)
			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestFactory_New_CollectsLineItemErrors(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(now))

	d := validDraft()
	d.ShipmentDate = date(4)
	d.Items = []DraftItem{
		{ProductID: "bread", Quantity: 1}, // no price on the 4th
		{ProductID: "pizza", Quantity: 1}, // unknown product
		{ProductID: "soup", Quantity: 0},  // bad quantity
		{ProductID: "soup", Quantity: 1},
	}

	_, err := f.New(context.Background(), d)
	require.Error(t, err)

	all := multierr.Errors(err)
	require.Len(t, all, 3)

	var liErr *errs.LineItemError
	require.ErrorAs(t, all[0], &liErr)
	assert.Equal(t, "bread", liErr.ProductID)
	assert.Equal(t, "no price for product on date", liErr.Message)

	require.ErrorAs(t, all[1], &liErr)
	assert.Equal(t, "pizza", liErr.ProductID)
	assert.Equal(t, "product not found", liErr.Message)

	var vErr *errs.ValidationError
	require.ErrorAs(t, all[2], &vErr)
	assert.Equal(t, "quantity", vErr.Field)
}

func TestFactory_New_RepositoryErrors(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)

	f := newTestFactory(clock)
	f.products = &mockProductRepo{err: errors.New("db down")}
	_, err := f.New(context.Background(), validDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get products")

	f = newTestFactory(clock)
	f.prices = &mockPriceSource{err: errors.New("db down")}
	_, err = f.New(context.Background(), validDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load prices")
}

func TestFactory_NewFromMap(t *testing.T) {
	f := newTestFactory(clockwork.NewFakeClockAt(now))

	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(`{
		"customer": "alice",
		"shipmentDate": "2025-06-03",
		"address": "Floor 4, desk 12",
		"items": [
			{"productId": "bread", "quantity": 2},
			{"productId": "soup", "quantity": 1}
		]
	}`))
	require.NoError(t, decoder.Decode(&raw))

	o, err := f.NewFromMap(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, dec("13").Equal(o.Total()))
	assert.Len(t, o.Items(), 2)
}

func TestFactory_NewFromMap_Invalid(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"customer":     "alice",
			"shipmentDate": "2025-06-03",
			"address":      "Floor 4",
			"items":        []any{map[string]any{"productId": "bread", "quantity": float64(1)}},
		}
	}

	tests := []struct {
		name   string
		modify func(m map[string]any)
		field  string
	}{
		{"customer not a string", func(m map[string]any) { m["customer"] = 42.0 }, "customer"},
		{"missing shipment date", func(m map[string]any) { delete(m, "shipmentDate") }, "shipmentDate"},
		{"malformed shipment date", func(m map[string]any) { m["shipmentDate"] = "03/06/2025" }, "shipmentDate"},
		{"missing address", func(m map[string]any) { delete(m, "address") }, "address"},
		{"items not a list", func(m map[string]any) { m["items"] = "bread" }, "items"},
		{"item not an object", func(m map[string]any) { m["items"] = []any{"bread"} }, "items[0]"},
		{"fractional quantity", func(m map[string]any) {
			m["items"] = []any{map[string]any{"productId": "bread", "quantity": 1.5}}
		}, "items[0].quantity"},
		{"missing product id", func(m map[string]any) {
			m["items"] = []any{map[string]any{"quantity": 1.0}}
		}, "items[0].productId"},
	}

	f := newTestFactory(clockwork.NewFakeClockAt(now))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.modify(m)

			_, err := f.NewFromMap(context.Background(), m)
			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestQuantity(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{in: 2, want: 2},
		{in: int64(3), want: 3},
		{in: 4.0, want: 4},
		{in: json.Number("5"), want: 5},
		{in: " 6 ", want: 6},
		{in: -1.0, want: -1},
		{in: 1.25, wantErr: true},
		{in: json.Number("1.5"), wantErr: true},
		{in: "two", wantErr: true},
		{in: true, wantErr: true},
		{in: nil, wantErr: true},
	}

	for _, tt := range tests {
		got, err := quantity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "quantity(%v)", tt.in)
			continue
		}
		require.NoError(t, err, "quantity(%v)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
