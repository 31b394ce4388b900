package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no customer matches the lookup.
var ErrNotFound = errors.New("customer not found")

// Customer is an employee allowed to place lunch orders.
type Customer struct {
	Username string
	FullName string
	ClientID int
}

// Repository provides customer lookups.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Customer, error)
}
