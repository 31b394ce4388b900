package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/order"
)

// decodeOrder reads the representation written by encodeOrder, so tests can
// assert on response bodies through the domain type.
func decodeOrder(d *jx.Decoder) (*order.Order, error) {
	var s order.Snapshot
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "customer":
			s.Customer, err = d.Str()
		case "status":
			var v string
			if v, err = d.Str(); err == nil {
				s.Status, err = order.ParseStatus(v)
			}
		case "shipmentDate":
			s.ShipmentDate, err = decodeTime(d, daterange.Layout)
		case "address":
			s.Address, err = d.Str()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				it, err := decodeLineItem(d)
				if err != nil {
					return err
				}
				s.Items = append(s.Items, it)
				return nil
			})
		case "total":
			s.Total, err = decodeDecimal(d)
		case "transactions":
			err = d.Arr(func(d *jx.Decoder) error {
				t, err := decodeTransaction(d)
				if err != nil {
					return err
				}
				s.Transactions = append(s.Transactions, t)
				return nil
			})
		case "version":
			s.Version, err = d.Int64()
		case "createdAt":
			s.CreatedAt, err = decodeTime(d, time.RFC3339Nano)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return order.Restore(s)
}

func decodeLineItem(d *jx.Decoder) (order.LineItem, error) {
	var it order.LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			it.ProductID, err = d.Str()
		case "quantity":
			it.Quantity, err = d.Int()
		case "unitPrice":
			it.UnitPrice, err = decodeDecimal(d)
		case "total":
			it.Total, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return it, err
}

func decodeTransaction(d *jx.Decoder) (order.Transaction, error) {
	var t order.Transaction
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			t.ID, err = d.Str()
		case "orderId":
			t.OrderID, err = d.Str()
		case "type":
			var v string
			v, err = d.Str()
			t.Type = order.TransactionType(v)
		case "amount":
			t.Amount, err = decodeDecimal(d)
		case "reason":
			t.Reason, err = d.Str()
		case "createdAt":
			t.CreatedAt, err = decodeTime(d, time.RFC3339Nano)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return t, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

func decodeTime(d *jx.Decoder, layout string) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
