package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionPayment      TransactionType = "payment"
	TransactionCancellation TransactionType = "cancellation"
	TransactionRejection    TransactionType = "rejection"
)

// Transaction is an immutable ledger entry recording a state change of an
// order. Payments carry the order total; cancellations and rejections carry
// the refunded amount, which is zero when the order was never paid.
type Transaction struct {
	ID        string
	OrderID   string
	Type      TransactionType
	Amount    decimal.Decimal
	Reason    string
	CreatedAt time.Time
}

func newTransaction(orderID string, typ TransactionType, amount decimal.Decimal, reason string, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Type:      typ,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: at.UTC(),
	}
}
