package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/db"
	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/port"
	"golang.org/x/text/currency"
)

type orderRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

func NewOrder(pool *pgxpool.Pool) (port.OrderRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &orderRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{
		q:    db.New(tx),
		pool: nil,
	}
}

// CreateOrder stores the order header and its item snapshot atomically.
func (r *orderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.OwnerID == "" {
		return domain.Order{}, fmt.Errorf("ownerID is empty")
	}
	if len(order.Items) == 0 {
		return domain.Order{}, fmt.Errorf("order has no items: %w", domain.ErrInvalidCheckout)
	}

	return withTx(ctx, r.pool, r.q, pgx.TxOptions{}, func(q *db.Queries) (domain.Order, error) {
		dbOrder, err := q.CreateOrder(ctx, db.CreateOrderParams{
			OwnerID:       order.OwnerID,
			Status:        string(order.Status),
			TotalAmount:   order.Total.Amount,
			TotalCurrency: order.Total.Currency.String(),
		})
		if err != nil {
			return domain.Order{}, fmt.Errorf("q.CreateOrder: %w", err)
		}

		for _, it := range order.Items {
			if err := q.InsertOrderItem(ctx, db.InsertOrderItemParams{
				OrderID:       dbOrder.ID,
				ProductID:     it.ProductID,
				ProductName:   it.ProductName,
				PriceAmount:   it.Price.Amount,
				PriceCurrency: it.Price.Currency.String(),
				Quantity:      int32(it.Quantity),
			}); err != nil {
				return domain.Order{}, fmt.Errorf("q.InsertOrderItem: %w", err)
			}
		}

		created, err := mapOrderToDomain(dbOrder, nil)
		if err != nil {
			return domain.Order{}, fmt.Errorf("mapOrderToDomain: %w", err)
		}
		created.Items = append([]domain.OrderItem(nil), order.Items...)

		return created, nil
	})
}

func (r *orderRepository) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	return withTx(ctx, r.pool, r.q, readSnapshot, func(q *db.Queries) (domain.Order, error) {
		dbOrder, err := q.GetOrder(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("q.GetOrder: %w", err)
		}

		orders, err := attachOrderItems(ctx, q, []db.Order{dbOrder})
		if err != nil {
			return domain.Order{}, err
		}

		return orders[0], nil
	})
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return withTx(ctx, r.pool, r.q, readSnapshot, func(q *db.Queries) ([]domain.Order, error) {
		dbOrders, err := q.ListOrders(ctx)
		if err != nil {
			return nil, fmt.Errorf("q.ListOrders: %w", err)
		}

		return attachOrderItems(ctx, q, dbOrders)
	})
}

func (r *orderRepository) ListOrdersByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	return withTx(ctx, r.pool, r.q, readSnapshot, func(q *db.Queries) ([]domain.Order, error) {
		dbOrders, err := q.ListOrdersByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("q.ListOrdersByOwner: %w", err)
		}

		return attachOrderItems(ctx, q, dbOrders)
	})
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (domain.Order, error) {
	return withTx(ctx, r.pool, r.q, pgx.TxOptions{}, func(q *db.Queries) (domain.Order, error) {
		affected, err := q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{
			ToStatus:   string(to),
			ID:         id,
			FromStatus: string(from),
		})
		if err != nil {
			return domain.Order{}, fmt.Errorf("q.UpdateOrderStatus: %w", err)
		}

		dbOrder, err := q.GetOrder(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("q.GetOrder: %w", err)
		}

		if affected == 0 {
			return domain.Order{}, domain.ErrVersionConflict
		}

		orders, err := attachOrderItems(ctx, q, []db.Order{dbOrder})
		if err != nil {
			return domain.Order{}, err
		}

		return orders[0], nil
	})
}

func (r *orderRepository) Revenue(ctx context.Context) (domain.Revenue, error) {
	row, err := r.q.GetRevenue(ctx)
	if err != nil {
		return domain.Revenue{}, fmt.Errorf("q.GetRevenue: %w", err)
	}

	return domain.Revenue{
		TotalRevenue: row.TotalRevenue,
		OrderCount:   row.OrderCount,
	}, nil
}

// attachOrderItems loads the lines of every order in one query.
func attachOrderItems(ctx context.Context, q *db.Queries, dbOrders []db.Order) ([]domain.Order, error) {
	if len(dbOrders) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(dbOrders))
	for _, o := range dbOrders {
		ids = append(ids, o.ID)
	}

	dbItems, err := q.ListOrderItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("q.ListOrderItems: %w", err)
	}

	byOrder := make(map[int64][]db.OrderItem, len(dbOrders))
	for _, it := range dbItems {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	orders := make([]domain.Order, 0, len(dbOrders))
	for _, o := range dbOrders {
		order, err := mapOrderToDomain(o, byOrder[o.ID])
		if err != nil {
			return nil, fmt.Errorf("mapOrderToDomain: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func mapOrderToDomain(o db.Order, rows []db.OrderItem) (domain.Order, error) {
	totalCurrency, err := currency.ParseISO(o.TotalCurrency)
	if err != nil {
		return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", o.TotalCurrency, err)
	}

	status, err := domain.ParseOrderStatus(o.Status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.ParseOrderStatus: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(rows))
	for _, row := range rows {
		priceCurrency, err := currency.ParseISO(row.PriceCurrency)
		if err != nil {
			return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
		}

		items = append(items, domain.OrderItem{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Price:       domain.Money{Amount: row.PriceAmount, Currency: priceCurrency},
			Quantity:    int(row.Quantity),
		})
	}

	return domain.Order{
		ID:        o.ID,
		OwnerID:   o.OwnerID,
		Items:     items,
		Total:     domain.Money{Amount: o.TotalAmount, Currency: totalCurrency},
		Status:    status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}
