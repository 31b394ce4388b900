package handler

import (
	"encoding/json"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/order"
	"github.com/xenking/lunch-orders/internal/domain/price"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

// encodeOrder writes every field of o. Amounts are decimal strings and
// timestamps are RFC 3339 in UTC.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	s := o.Snapshot()
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
		e.Field("customer", func(e *jx.Encoder) { e.Str(s.Customer) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(s.Status)) })
		e.Field("shipmentDate", func(e *jx.Encoder) { e.Str(s.ShipmentDate.Format(daterange.Layout)) })
		e.Field("address", func(e *jx.Encoder) { e.Str(s.Address) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range s.Items {
					encodeLineItem(e, it)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Str(s.Total.String()) })
		e.Field("transactions", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range s.Transactions {
					encodeTransaction(e, t)
				}
			})
		})
		e.Field("version", func(e *jx.Encoder) { e.Int64(s.Version) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(s.CreatedAt.UTC().Format(time.RFC3339Nano)) })
	})
}

func encodeOrders(e *jx.Encoder, orders []*order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for _, o := range orders {
			encodeOrder(e, o)
		}
	})
}

func encodeLineItem(e *jx.Encoder, it order.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Str(it.UnitPrice.String()) })
		e.Field("total", func(e *jx.Encoder) { e.Str(it.Total.String()) })
	})
}

func encodeTransaction(e *jx.Encoder, t order.Transaction) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(t.ID) })
		e.Field("orderId", func(e *jx.Encoder) { e.Str(t.OrderID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(t.Type)) })
		e.Field("amount", func(e *jx.Encoder) { e.Str(t.Amount.String()) })
		if t.Reason != "" {
			e.Field("reason", func(e *jx.Encoder) { e.Str(t.Reason) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(t.CreatedAt.UTC().Format(time.RFC3339Nano)) })
	})
}

func encodePrices(e *jx.Encoder, set *price.Set) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range set.Prices() {
			e.Obj(func(e *jx.Encoder) {
				e.Field("productId", func(e *jx.Encoder) { e.Str(p.ProductID) })
				e.Field("date", func(e *jx.Encoder) { e.Str(p.Date.Format(daterange.Layout)) })
				e.Field("amount", func(e *jx.Encoder) { e.Str(p.Amount.String()) })
			})
		}
	})
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	})
}

// decodeAny reads an arbitrary JSON value into the shapes encoding/json
// produces, except that numbers are kept as json.Number.
func decodeAny(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Object:
		m := make(map[string]any)
		err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeAny(d)
			if err != nil {
				return err
			}
			m[key] = v
			return nil
		})
		return m, err
	case jx.Array:
		list := make([]any, 0)
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeAny(d)
			if err != nil {
				return err
			}
			list = append(list, v)
			return nil
		})
		return list, err
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return json.Number(n.String()), nil
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, errors.New("invalid json value")
	}
}

// decodeObject reads a JSON object body.
func decodeObject(data []byte) (map[string]any, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errors.New("request body must be a JSON object")
	}
	v, err := decodeAny(d)
	if err != nil {
		return nil, err
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return v.(map[string]any), nil
}
