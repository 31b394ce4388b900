package order

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// Order is one customer's lunch purchase for a shipment date. It owns its
// line items and transactions; all mutations go through its methods so that
// the total and the status machine stay consistent.
type Order struct {
	id           string
	customer     string
	shipmentDate time.Time
	address      string
	status       Status
	items        []LineItem
	total        decimal.Decimal
	transactions []Transaction
	version      int64
	createdAt    time.Time
}

// Snapshot is the complete, lossless state of an order, used by storage and
// transport mappings.
type Snapshot struct {
	ID           string
	Customer     string
	ShipmentDate time.Time
	Address      string
	Status       Status
	Items        []LineItem
	Total        decimal.Decimal
	Transactions []Transaction
	Version      int64
	CreatedAt    time.Time
}

// Restore rebuilds an order from persisted state and re-checks its invariants.
func Restore(s Snapshot) (*Order, error) {
	if s.ID == "" {
		return nil, errs.Validation("id", "order id is required")
	}
	if !s.Status.Valid() {
		return nil, errs.Validation("status", "unknown order status "+string(s.Status))
	}
	if sum := sumTotals(s.Items); !sum.Equal(s.Total) {
		return nil, errors.Errorf("order %s: total %s does not match line items sum %s", s.ID, s.Total, sum)
	}

	return &Order{
		id:           s.ID,
		customer:     s.Customer,
		shipmentDate: daterange.Day(s.ShipmentDate),
		address:      s.Address,
		status:       s.Status,
		items:        slices.Clone(s.Items),
		total:        s.Total,
		transactions: slices.Clone(s.Transactions),
		version:      s.Version,
		createdAt:    s.CreatedAt,
	}, nil
}

// Snapshot returns a copy of the order state.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:           o.id,
		Customer:     o.customer,
		ShipmentDate: o.shipmentDate,
		Address:      o.address,
		Status:       o.status,
		Items:        o.Items(),
		Total:        o.total,
		Transactions: o.Transactions(),
		Version:      o.version,
		CreatedAt:    o.createdAt,
	}
}

func (o *Order) ID() string              { return o.id }
func (o *Order) Customer() string        { return o.customer }
func (o *Order) ShipmentDate() time.Time { return o.shipmentDate }
func (o *Order) Address() string         { return o.address }
func (o *Order) Status() Status          { return o.status }
func (o *Order) Total() decimal.Decimal  { return o.total }
func (o *Order) Version() int64          { return o.version }
func (o *Order) CreatedAt() time.Time    { return o.createdAt }

// Items returns a copy of the line items.
func (o *Order) Items() []LineItem { return slices.Clone(o.items) }

// Transactions returns a copy of the ledger, oldest first.
func (o *Order) Transactions() []Transaction { return slices.Clone(o.transactions) }

// Pay marks a created order as paid and records a payment of the full total.
func (o *Order) Pay(at time.Time) (Transaction, error) {
	if err := o.status.allows(actionPay); err != nil {
		return Transaction{}, err
	}
	tx := newTransaction(o.id, TransactionPayment, o.total, "", at)
	o.apply(StatusPaid, tx)
	return tx, nil
}

// Cancel cancels a created or paid order. A reason is required.
func (o *Order) Cancel(reason string, at time.Time) (Transaction, error) {
	return o.close(actionCancel, StatusCanceled, TransactionCancellation, reason, at)
}

// Reject is the operator override that refuses a created or paid order.
// A reason is required.
func (o *Order) Reject(reason string, at time.Time) (Transaction, error) {
	return o.close(actionReject, StatusRejected, TransactionRejection, reason, at)
}

// ChangeAddress replaces the delivery address while the order is still open.
func (o *Order) ChangeAddress(address string) error {
	if err := o.status.allows(actionChangeAddress); err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return errs.Validation("address", "address is required")
	}
	o.address = address
	return nil
}

func (o *Order) close(action string, to Status, typ TransactionType, reason string, at time.Time) (Transaction, error) {
	if err := o.status.allows(action); err != nil {
		return Transaction{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Transaction{}, errs.Validation("reason", "reason is required to "+action+" an order")
	}

	refund := decimal.Zero
	if o.status == StatusPaid {
		refund = o.total
	}
	tx := newTransaction(o.id, typ, refund, reason, at)
	o.apply(to, tx)
	return tx, nil
}

// persisted records a successful write by the repository.
func (o *Order) persisted() { o.version++ }

func (o *Order) apply(to Status, tx Transaction) {
	o.status = to
	o.transactions = append(o.transactions, tx)
}

// Repository persists orders. Both Create and Update store o.Version()+1.
// Update must only succeed when the stored version still equals o.Version();
// otherwise it returns an *errs.ConflictError. Transactions are append-only:
// Update inserts those not yet stored and never modifies existing ones.
// Get returns an *errs.NotFoundError for unknown ids.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, f Filter) ([]*Order, error)
}
