package order

import (
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// Status is the lifecycle state of an order.
//
//	created ──> paid ──> canceled
//	   │          │
//	   ├──────────┼────> canceled
//	   └──────────┴────> rejected
//
// canceled and rejected are terminal.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a stored status string.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", errs.Validation("status", "unknown order status "+v)
	}
	return s, nil
}

// Actions named in StateTransitionError.
const (
	actionPay           = "pay"
	actionCancel        = "cancel"
	actionReject        = "reject"
	actionChangeAddress = "change the address of"
)

// allowedFrom lists the source statuses accepted by each action.
var allowedFrom = map[string][]Status{
	actionPay:           {StatusCreated},
	actionCancel:        {StatusCreated, StatusPaid},
	actionReject:        {StatusCreated, StatusPaid},
	actionChangeAddress: {StatusCreated, StatusPaid},
}

func (s Status) allows(action string) error {
	for _, from := range allowedFrom[action] {
		if s == from {
			return nil
		}
	}
	return &errs.StateTransitionError{Action: action, Status: string(s)}
}
