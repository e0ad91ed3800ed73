package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/port"
	"github.com/nikolayk812/cartsaga/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type orderRepositorySuite struct {
	suite.Suite

	repo port.OrderRepository
	pool *pgxpool.Pool
}

func TestOrderRepositorySuite(t *testing.T) {
	suite.Run(t, new(orderRepositorySuite))
}

func (suite *orderRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	_, connStr, err := startPostgres(ctx)
	suite.Require().NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.repo, err = repository.NewOrder(suite.pool)
	suite.Require().NoError(err)
}

func (suite *orderRepositorySuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *orderRepositorySuite) TestCreateAndGetOrder() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	order := randomOrder(gofakeit.UUID())

	created, err := suite.repo.CreateOrder(ctx, order)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.OrderStatusConfirmed, created.Status)
	assert.True(t, order.Total.Amount.Equal(created.Total.Amount))

	got, err := suite.repo.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, order.OwnerID, got.OwnerID)
	assert.True(t, order.Total.Amount.Equal(got.Total.Amount))
	assertOrderItems(t, order.Items, got.Items)

	_, err = suite.repo.GetOrder(ctx, created.ID+1000)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (suite *orderRepositorySuite) TestCreateOrder_Invalid() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.repo.CreateOrder(ctx, domain.Order{})
	require.EqualError(t, err, "ownerID is empty")

	_, err = suite.repo.CreateOrder(ctx, domain.Order{OwnerID: gofakeit.UUID()})
	require.ErrorIs(t, err, domain.ErrInvalidCheckout)
}

func (suite *orderRepositorySuite) TestListOrders() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	alice, bob := gofakeit.UUID(), gofakeit.UUID()
	for _, owner := range []string{alice, bob, alice} {
		_, err := suite.repo.CreateOrder(ctx, randomOrder(owner))
		require.NoError(t, err)
	}

	all, err := suite.repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, o := range all {
		assert.NotEmpty(t, o.Items)
	}

	byAlice, err := suite.repo.ListOrdersByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, byAlice, 2)
	assert.Less(t, byAlice[0].ID, byAlice[1].ID)

	none, err := suite.repo.ListOrdersByOwner(ctx, gofakeit.UUID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func (suite *orderRepositorySuite) TestUpdateOrderStatus() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	created, err := suite.repo.CreateOrder(ctx, randomOrder(gofakeit.UUID()))
	require.NoError(t, err)

	updated, err := suite.repo.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusConfirmed, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	assert.NotEmpty(t, updated.Items)

	// the guard fails once the status has moved on
	_, err = suite.repo.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusConfirmed, domain.OrderStatusCancelled)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = suite.repo.UpdateOrderStatus(ctx, created.ID+1000, domain.OrderStatusConfirmed, domain.OrderStatusShipped)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (suite *orderRepositorySuite) TestRevenue() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	empty, err := suite.repo.Revenue(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.OrderCount)
	assert.True(t, empty.TotalRevenue.IsZero())

	for _, amount := range []string{"20.00", "25.00"} {
		order := randomOrder(gofakeit.UUID())
		order.Total.Amount = decimal.RequireFromString(amount)
		_, err := suite.repo.CreateOrder(ctx, order)
		require.NoError(t, err)
	}

	revenue, err := suite.repo.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revenue.OrderCount)
	assert.Equal(t, "45.00", revenue.TotalRevenue.StringFixed(2))
	assert.Equal(t, "22.50", revenue.AverageOrderValue().StringFixed(2))
}

func (suite *orderRepositorySuite) deleteAll() {
	_, err := suite.pool.Exec(suite.T().Context(), "TRUNCATE TABLE orders CASCADE")
	suite.NoError(err)
}

func randomOrder(ownerID string) domain.Order {
	items := make([]domain.OrderItem, gofakeit.IntRange(1, 3))
	for i := range items {
		items[i] = domain.OrderItem{
			ProductID:   gofakeit.Int64(),
			ProductName: gofakeit.ProductName(),
			Price: domain.Money{
				Amount:   decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2),
				Currency: domain.DefaultCurrency,
			},
			Quantity: gofakeit.IntRange(1, 4),
		}
	}

	return domain.Order{
		OwnerID: ownerID,
		Items:   items,
		Total:   domain.OrderTotal(items, domain.DefaultCurrency),
		Status:  domain.OrderStatusConfirmed,
	}
}
