package order_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
)

type memoryOrders struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (r *memoryOrders) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.ID = int64(len(r.orders) + 1)
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.orders = append(r.orders, o)
	return o, nil
}

func (r *memoryOrders) GetOrder(_ context.Context, id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 1 || id > int64(len(r.orders)) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.orders[id-1], nil
}

func (r *memoryOrders) ListOrders(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Order(nil), r.orders...), nil
}

func (r *memoryOrders) ListOrdersByOwner(_ context.Context, ownerID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryOrders) UpdateOrderStatus(_ context.Context, id int64, from, to domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 1 || id > int64(len(r.orders)) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if r.orders[id-1].Status != from {
		return domain.Order{}, domain.ErrVersionConflict
	}
	r.orders[id-1].Status = to
	return r.orders[id-1], nil
}

func (r *memoryOrders) Revenue(_ context.Context) (domain.Revenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rev domain.Revenue
	for _, o := range r.orders {
		rev.TotalRevenue = rev.TotalRevenue.Add(o.Total.Amount)
		rev.OrderCount++
	}
	return rev, nil
}

func (r *memoryOrders) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// hangUpOrders cancels the request context once the order is committed, as
// when the client disconnects while the response is being written.
type hangUpOrders struct {
	*memoryOrders
	cancel context.CancelFunc
}

func (r *hangUpOrders) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	o, err := r.memoryOrders.CreateOrder(ctx, o)
	r.cancel()
	return o, err
}

// fakeClearer answers every clear with err, or blocks until the attempt's
// context ends when block is set.
type fakeClearer struct {
	err   error
	block bool
	calls atomic.Int64

	mu       sync.Mutex
	ctxErrs  []error
	ownerIDs []string
}

func (c *fakeClearer) ClearCart(ctx context.Context, ownerID string) error {
	c.calls.Add(1)

	c.mu.Lock()
	c.ownerIDs = append(c.ownerIDs, ownerID)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	c.mu.Unlock()

	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.err
}

type fakeIdempotency struct {
	mu      sync.Mutex
	keys    map[string]int64
	err     error
	release []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]int64)}
}

func (f *fakeIdempotency) Reserve(_ context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, false, f.err
	}
	if id, ok := f.keys[key]; ok {
		return id, false, nil
	}
	f.keys[key] = 0
	return 0, true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key string, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys[key] = orderID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.keys, key)
	f.release = append(f.release, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (p *fakePublisher) PublishOrderConfirmed(_ context.Context, o domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orders = append(p.orders, o)
	return p.err
}
