package order

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// --- Mock implementations ---

// mockOrderRepo stores snapshots and enforces the version check the way the
// postgres repository does.
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]Snapshot
	createErr error
	updates   int
}

var _ Repository = (*mockOrderRepo)(nil)

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]Snapshot)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	s := o.Snapshot()
	s.Version++
	m.orders[s.ID] = s
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.orders[id]
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	return Restore(s)
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID()]
	if !ok {
		return errs.NotFound("order", o.ID())
	}
	if stored.Version != o.Version() {
		return &errs.ConflictError{Entity: "order", ID: o.ID(), Version: o.Version()}
	}
	s := o.Snapshot()
	s.Version++
	m.orders[s.ID] = s
	m.updates++
	return nil
}

func (m *mockOrderRepo) List(_ context.Context, f Filter) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, s := range m.orders {
		o, err := Restore(s)
		if err != nil {
			return nil, err
		}
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestService(t *testing.T) (*Service, *mockOrderRepo) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(now)
	repo := newMockOrderRepo()
	svc, err := NewService(newTestFactory(clock), repo, clock)
	require.NoError(t, err)
	return svc, repo
}

func rawOrder() map[string]any {
	return map[string]any{
		"customer":     "alice",
		"shipmentDate": "2025-06-03",
		"address":      "Floor 4, desk 12",
		"items": []any{
			map[string]any{"productId": "bread", "quantity": 2.0},
			map[string]any{"productId": "soup", "quantity": 1.0},
		},
	}
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	svc, repo := newTestService(t)

	o, err := svc.Create(context.Background(), rawOrder())
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, o.Status())
	assert.Equal(t, int64(1), o.Version())

	stored, err := repo.Get(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, o.Snapshot(), stored.Snapshot())
}

func TestService_Create_ValidationErrorIsNotStored(t *testing.T) {
	svc, repo := newTestService(t)

	raw := rawOrder()
	raw["customer"] = ""

	_, err := svc.Create(context.Background(), raw)
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, repo.orders)
}

func TestService_Create_RepositoryError(t *testing.T) {
	svc, repo := newTestService(t)
	repo.createErr = errors.New("db down")

	_, err := svc.Create(context.Background(), rawOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestService_Place(t *testing.T) {
	svc, repo := newTestService(t)

	o, err := svc.Place(context.Background(), rawOrder())
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status())

	stored := repo.orders[o.ID()]
	assert.Equal(t, StatusPaid, stored.Status)
	require.Len(t, stored.Transactions, 1)
	assert.Equal(t, TransactionPayment, stored.Transactions[0].Type)
	assert.True(t, dec("13.00").Equal(stored.Transactions[0].Amount))
	assert.Equal(t, now, stored.Transactions[0].CreatedAt)
}

func TestService_PayThenCancel(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	o, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)

	paid, payment, err := svc.Pay(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status())
	assert.Equal(t, TransactionPayment, payment.Type)
	assert.Equal(t, int64(2), paid.Version())

	canceled, refund, err := svc.Cancel(ctx, o.ID(), "meeting moved")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status())
	assert.True(t, dec("13.00").Equal(refund.Amount))
	assert.Equal(t, int64(3), canceled.Version())

	_, _, err = svc.Pay(ctx, o.ID())
	var stErr *errs.StateTransitionError
	require.ErrorAs(t, err, &stErr)

	stored := repo.orders[o.ID()]
	assert.Equal(t, StatusCanceled, stored.Status)
	assert.Len(t, stored.Transactions, 2)
	assert.Equal(t, 2, repo.updates)
}

func TestService_Reject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)

	_, _, err = svc.Reject(ctx, o.ID(), " ")
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)

	rejected, tx, err := svc.Reject(ctx, o.ID(), "kitchen closed")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status())
	assert.Equal(t, TransactionRejection, tx.Type)
	assert.True(t, tx.Amount.IsZero())
}

func TestService_ChangeAddress(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	o, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)

	changed, err := svc.ChangeAddress(ctx, o.ID(), "Floor 2")
	require.NoError(t, err)
	assert.Equal(t, "Floor 2", changed.Address())
	assert.Equal(t, "Floor 2", repo.orders[o.ID()].Address)
	assert.Empty(t, repo.orders[o.ID()].Transactions)
}

func TestService_UnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Pay(context.Background(), "missing")
	var nfErr *errs.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "order", nfErr.Entity)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorAs(t, err, &nfErr)
}

func TestService_ConcurrentModification(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	o, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)

	// A second writer loads the same version, then loses the race.
	stale, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)

	_, _, err = svc.Pay(ctx, o.ID())
	require.NoError(t, err)

	_, err = stale.Cancel("too late", now)
	require.NoError(t, err)
	err = repo.Update(ctx, stale)
	var cErr *errs.ConflictError
	require.ErrorAs(t, err, &cErr)

	stored := repo.orders[o.ID()]
	assert.Equal(t, StatusPaid, stored.Status)
	assert.Len(t, stored.Transactions, 1)
}

func TestService_ConcurrentPayExactlyOnce(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	o, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Pay(ctx, o.ID()); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, repo.orders[o.ID()].Transactions, 1)
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, Filter{})
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)

	first, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)
	second, err := svc.Create(ctx, rawOrder())
	require.NoError(t, err)
	_, _, err = svc.Cancel(ctx, second.ID(), "duplicate")
	require.NoError(t, err)

	d := date(3)
	got, err := svc.List(ctx, Filter{ShipmentDate: &d})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, o := range got {
		ids = append(ids, o.ID())
	}
	assert.ElementsMatch(t, []string{first.ID(), second.ID()}, ids)

	got, err = svc.List(ctx, Filter{Customer: "alice", ExcludeClosed: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID(), got[0].ID())
}
