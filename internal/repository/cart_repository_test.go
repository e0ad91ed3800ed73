package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/port"
	"github.com/nikolayk812/cartsaga/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type cartRepositorySuite struct {
	suite.Suite

	repo port.CartRepository
	pool *pgxpool.Pool
}

// entry point to run the tests in the suite
func TestCartRepositorySuite(t *testing.T) {
	suite.Run(t, new(cartRepositorySuite))
}

// before all tests in the suite
func (suite *cartRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	_, connStr, err := startPostgres(ctx)
	suite.Require().NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.repo, err = repository.NewCart(suite.pool)
	suite.Require().NoError(err)
}

// after all tests in the suite
func (suite *cartRepositorySuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *cartRepositorySuite) TestCreateCart() {
	defer suite.deleteAll()

	tests := []struct {
		name      string
		ownerID   string
		existing  bool
		wantErr   error
		wantError string
	}{
		{
			name:    "create new cart: ok",
			ownerID: gofakeit.UUID(),
		},
		{
			name:     "create existing cart: exists",
			ownerID:  gofakeit.UUID(),
			existing: true,
			wantErr:  domain.ErrCartExists,
		},
		{
			name:      "create cart with empty owner ID: error",
			ownerID:   "",
			wantError: "ownerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			if tt.existing {
				_, err := suite.repo.CreateCart(ctx, tt.ownerID)
				require.NoError(t, err)
			}

			cart, err := suite.repo.CreateCart(ctx, tt.ownerID)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.ownerID, cart.OwnerID)
			assert.Zero(t, cart.Version)
			assert.Empty(t, cart.Items)
			assert.False(t, cart.CreatedAt.IsZero())
		})
	}
}

func (suite *cartRepositorySuite) TestGetCart() {
	defer suite.deleteAll()

	tests := []struct {
		name       string
		ownerID    string
		create     bool
		setupItems []domain.CartItem
		wantErr    error
		wantError  string
	}{
		{
			name:       "get cart with items: ok",
			ownerID:    gofakeit.UUID(),
			create:     true,
			setupItems: []domain.CartItem{randomCartItem(), randomCartItem()},
		},
		{
			name:    "get empty cart: ok",
			ownerID: gofakeit.UUID(),
			create:  true,
		},
		{
			name:    "get missing cart: not found",
			ownerID: gofakeit.UUID(),
			wantErr: domain.ErrCartNotFound,
		},
		{
			name:      "get cart with empty owner ID: error",
			ownerID:   "",
			wantError: "ownerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			if tt.create {
				cart, err := suite.repo.CreateCart(ctx, tt.ownerID)
				require.NoError(t, err)

				if len(tt.setupItems) > 0 {
					cart.Items = tt.setupItems
					_, err = suite.repo.SaveCart(ctx, cart)
					require.NoError(t, err)
				}
			}

			cart, err := suite.repo.GetCart(ctx, tt.ownerID)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.ownerID, cart.OwnerID)
			assertCartItems(t, tt.setupItems, cart.Items)
		})
	}
}

func (suite *cartRepositorySuite) TestSaveCart() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	ownerID := gofakeit.UUID()

	cart, err := suite.repo.CreateCart(ctx, ownerID)
	require.NoError(t, err)

	first, second := randomCartItem(), randomCartItem()
	cart.Items = []domain.CartItem{first, second}

	saved, err := suite.repo.SaveCart(ctx, cart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assertCartItems(t, cart.Items, saved.Items)

	// update the first line, drop the second, add a third
	third := randomCartItem()
	next := saved.Clone()
	next.Items[0].Quantity += 2
	next.Items = append(next.Items[:1], third)

	saved2, err := suite.repo.SaveCart(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved2.Version)
	assert.Equal(t, saved.Items[0].ID, saved2.Items[0].ID)

	stored, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assertCartItems(t, next.Items, stored.Items)

	// stale version is rejected and nothing changes
	_, err = suite.repo.SaveCart(ctx, saved)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	after, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, after.Version)
	assertCartItems(t, stored.Items, after.Items)
}

func (suite *cartRepositorySuite) TestSaveCart_Invalid() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.repo.SaveCart(ctx, domain.Cart{})
	require.EqualError(t, err, "ownerID is empty")

	item := randomCartItem()
	item.Quantity = 0
	_, err = suite.repo.SaveCart(ctx, domain.Cart{OwnerID: gofakeit.UUID(), Items: []domain.CartItem{item}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func (suite *cartRepositorySuite) TestSaveCart_ConcurrentSameVersion() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	ownerID := gofakeit.UUID()

	cart, err := suite.repo.CreateCart(ctx, ownerID)
	require.NoError(t, err)

	const writers = 8
	results := make([]error, writers)

	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			next := cart.Clone()
			next.Items = []domain.CartItem{randomCartItem()}
			_, results[i] = suite.repo.SaveCart(ctx, next)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Len(t, stored.Items, 1)
}

func (suite *cartRepositorySuite) deleteAll() {
	_, err := suite.pool.Exec(suite.T().Context(), "TRUNCATE TABLE carts CASCADE")
	suite.NoError(err)
}
