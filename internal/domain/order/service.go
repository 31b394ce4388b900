package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/xenking/lunch-orders/internal/domain/order"

// Service runs order use cases: it loads the aggregate, applies one
// operation and persists the result with an optimistic version check.
type Service struct {
	factory *Factory
	orders  Repository
	clock   clockwork.Clock

	tracer     trace.Tracer
	operations metric.Int64Counter
}

type serviceOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithTracerProvider sets the provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the provider used for operation counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// NewService creates an order Service.
func NewService(factory *Factory, orders Repository, clock clockwork.Clock, opts ...Option) (*Service, error) {
	o := serviceOptions{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	operations, err := o.meterProvider.Meter(instrumentationName).Int64Counter(
		"lunch.order.operations",
		metric.WithDescription("Order operations by name and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create operations counter")
	}

	return &Service{
		factory:    factory,
		orders:     orders,
		clock:      clock,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		operations: operations,
	}, nil
}

// Create validates and prices raw input and stores the order unpaid.
func (s *Service) Create(ctx context.Context, raw map[string]any) (_ *Order, err error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer func() { s.finish(ctx, span, "create", err) }()

	o, err := s.factory.NewFromMap(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	o.persisted()
	return o, nil
}

// Place validates and prices raw input, pays the order right away and
// stores it together with its payment transaction.
func (s *Service) Place(ctx context.Context, raw map[string]any) (_ *Order, err error) {
	ctx, span := s.tracer.Start(ctx, "order.Place")
	defer func() { s.finish(ctx, span, "place", err) }()

	o, err := s.factory.NewFromMap(ctx, raw)
	if err != nil {
		return nil, err
	}
	if _, err := o.Pay(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	o.persisted()
	return o, nil
}

// Get loads one order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// List returns the orders matching f. A filter with no criteria is refused.
func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Pay marks the order as paid.
func (s *Service) Pay(ctx context.Context, id string) (*Order, Transaction, error) {
	return s.mutate(ctx, "pay", id, func(o *Order, now time.Time) (Transaction, error) {
		return o.Pay(now)
	})
}

// Cancel cancels the order with the given reason.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Order, Transaction, error) {
	return s.mutate(ctx, "cancel", id, func(o *Order, now time.Time) (Transaction, error) {
		return o.Cancel(reason, now)
	})
}

// Reject rejects the order with the given reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (*Order, Transaction, error) {
	return s.mutate(ctx, "reject", id, func(o *Order, now time.Time) (Transaction, error) {
		return o.Reject(reason, now)
	})
}

// ChangeAddress replaces the delivery address of an open order.
func (s *Service) ChangeAddress(ctx context.Context, id, address string) (*Order, error) {
	o, _, err := s.mutate(ctx, "change_address", id, func(o *Order, _ time.Time) (Transaction, error) {
		return Transaction{}, o.ChangeAddress(address)
	})
	return o, err
}

// mutate loads the order, applies fn and writes it back conditioned on the
// version that was read. A concurrent writer makes Update fail with a
// ConflictError and nothing is stored.
func (s *Service) mutate(
	ctx context.Context,
	name, id string,
	fn func(o *Order, now time.Time) (Transaction, error),
) (_ *Order, _ Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "order."+name, trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { s.finish(ctx, span, name, err) }()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, Transaction{}, errors.Wrap(err, "get order")
	}

	tx, err := fn(o, s.clock.Now())
	if err != nil {
		return nil, Transaction{}, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, Transaction{}, errors.Wrap(err, "update order")
	}
	o.persisted()
	return o, tx, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("outcome", outcome),
	))
	span.End()
}
