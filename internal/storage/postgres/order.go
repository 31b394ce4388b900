package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/order"
)

const (
	orderColumns = `id, customer, shipment_date, address, status, items, total, version, created_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders SET address = $2, status = $3, version = $4
		WHERE id = $1 AND version = $5`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	insertTransactionSQL = `INSERT INTO order_transactions (id, order_id, type, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	listTransactionsSQL = `SELECT id, order_id, type, amount, reason, created_at
		FROM order_transactions WHERE order_id = ANY($1) ORDER BY created_at, id`

	uniqueViolation = "23505"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items are stored in a JSONB column; transactions live in their own
// append-only table.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order with its transactions.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	s := o.Snapshot()
	itemsJSON, err := marshalItems(s.Items)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			s.ID, s.Customer, s.ShipmentDate, s.Address, string(s.Status),
			itemsJSON, s.Total, s.Version+1, s.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return &errs.ConflictError{Entity: "order", ID: s.ID, Version: s.Version}
			}
			return fmt.Errorf("creating order %q: %w", s.ID, err)
		}
		return insertTransactions(ctx, tx, s.Transactions)
	})
}

// Get loads an order with its transactions.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanOrderRow)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("order", id)
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders, err := r.withTransactions(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

// Update writes the mutable fields of o and appends its new transactions,
// provided nobody else has written the order since it was loaded.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	s := o.Snapshot()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderSQL, s.ID, s.Address, string(s.Status), s.Version+1, s.Version)
		if err != nil {
			return fmt.Errorf("updating order %q: %w", s.ID, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, orderExistsSQL, s.ID).Scan(&exists); err != nil {
				return fmt.Errorf("checking order %q: %w", s.ID, err)
			}
			if !exists {
				return errs.NotFound("order", s.ID)
			}
			return &errs.ConflictError{Entity: "order", ID: s.ID, Version: s.Version}
		}
		return insertTransactions(ctx, tx, s.Transactions)
	})
}

// List returns the orders matching f ordered by shipment date, then
// creation time.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	query, args := listOrdersQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	collected, err := pgx.CollectRows(rows, scanOrderRow)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return r.withTransactions(ctx, collected)
}

// listOrdersQuery translates f into SQL. Filter.Match is the reference for
// these conditions.
func listOrdersQuery(f order.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ShipmentDate != nil {
		where = append(where, "shipment_date = "+arg(daterange.Day(*f.ShipmentDate)))
	}
	if f.Range != nil {
		where = append(where, fmt.Sprintf("shipment_date BETWEEN %s AND %s", arg(f.Range.Start()), arg(f.Range.End())))
	}
	if f.Customer != "" {
		where = append(where, "customer = "+arg(f.Customer))
	}
	if f.Paid != nil {
		if *f.Paid {
			where = append(where, "status = "+arg(string(order.StatusPaid)))
		} else {
			where = append(where, "status <> "+arg(string(order.StatusPaid)))
		}
	}
	if f.ExcludeClosed {
		where = append(where, fmt.Sprintf("status NOT IN (%s, %s)",
			arg(string(order.StatusCanceled)), arg(string(order.StatusRejected))))
	}

	var b strings.Builder
	b.WriteString("SELECT " + orderColumns + " FROM orders")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY shipment_date, created_at, id")
	return b.String(), args
}

func (r *OrderRepository) withTransactions(ctx context.Context, collected []orderRow) ([]*order.Order, error) {
	if len(collected) == 0 {
		return nil, nil
	}

	ids := make([]string, len(collected))
	for i, row := range collected {
		ids[i] = row.ID
	}
	rows, err := r.pool.Query(ctx, listTransactionsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("listing order transactions: %w", err)
	}

	byOrder := make(map[string][]order.Transaction, len(collected))
	for _, t := range txs {
		byOrder[t.OrderID] = append(byOrder[t.OrderID], t)
	}

	orders := make([]*order.Order, 0, len(collected))
	for _, row := range collected {
		o, err := row.restore(byOrder[row.ID])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func insertTransactions(ctx context.Context, tx pgx.Tx, txs []order.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(insertTransactionSQL, t.ID, t.OrderID, string(t.Type), t.Amount, t.Reason, t.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting order transactions: %w", err)
	}
	return nil
}

// itemRow is the JSONB representation of a line item.
type itemRow struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

func marshalItems(items []order.LineItem) ([]byte, error) {
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow(it)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}
	return data, nil
}

type orderRow struct {
	ID           string
	Customer     string
	ShipmentDate time.Time
	Address      string
	Status       string
	Items        []byte
	Total        decimal.Decimal
	Version      int64
	CreatedAt    time.Time
}

func scanOrderRow(row pgx.CollectableRow) (orderRow, error) {
	var o orderRow
	err := row.Scan(
		&o.ID, &o.Customer, &o.ShipmentDate, &o.Address, &o.Status,
		&o.Items, &o.Total, &o.Version, &o.CreatedAt,
	)
	return o, err
}

func (row orderRow) restore(txs []order.Transaction) (*order.Order, error) {
	var items []itemRow
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling items of order %q: %w", row.ID, err)
	}
	lineItems := make([]order.LineItem, len(items))
	for i, it := range items {
		lineItems[i] = order.LineItem(it)
	}

	status, err := order.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("order %q: %w", row.ID, err)
	}

	return order.Restore(order.Snapshot{
		ID:           row.ID,
		Customer:     row.Customer,
		ShipmentDate: row.ShipmentDate,
		Address:      row.Address,
		Status:       status,
		Items:        lineItems,
		Total:        row.Total,
		Transactions: txs,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt.UTC(),
	})
}

func scanTransaction(row pgx.CollectableRow) (order.Transaction, error) {
	var (
		t   order.Transaction
		typ string
	)
	if err := row.Scan(&t.ID, &t.OrderID, &typ, &t.Amount, &t.Reason, &t.CreatedAt); err != nil {
		return order.Transaction{}, err
	}
	t.Type = order.TransactionType(typ)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
