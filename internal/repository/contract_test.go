package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// cartContractSuite holds the behaviour every port.CartRepository must show.
// Backend suites embed it and set repo in SetupSuite.
type cartContractSuite struct {
	suite.Suite

	repo port.CartRepository

	// corrupt stores a raw value for ownerID, nil when the backend cannot hold one
	corrupt func(ownerID string, raw string)
}

func (suite *cartContractSuite) TestGetMissingCart() {
	t := suite.T()
	ownerID := gofakeit.UUID()

	cart, err := suite.repo.GetCart(t.Context(), ownerID)
	require.NoError(t, err)

	assert.Equal(t, ownerID, cart.OwnerID)
	assert.Empty(t, cart.Items)
}

func (suite *cartContractSuite) TestSaveCart() {
	tests := []struct {
		name      string
		ownerID   string
		saves     [][]domain.CartItem
		wantError string
	}{
		{
			name:    "save random items: ok",
			ownerID: gofakeit.UUID(),
			saves:   [][]domain.CartItem{randomCartItems(gofakeit.IntRange(1, 10))},
		},
		{
			name:    "save keeps insertion order: ok",
			ownerID: gofakeit.UUID(),
			saves: [][]domain.CartItem{{
				{Name: "Croissant", UnitPrice: decimal.NewFromInt(150), Quantity: 2},
				{Name: "Bagel", UnitPrice: decimal.NewFromInt(120), Quantity: 1},
				{Name: "Almond Tart", UnitPrice: decimal.RequireFromString("85.50"), Quantity: 4},
			}},
		},
		{
			name:    "second save overwrites first: ok",
			ownerID: gofakeit.UUID(),
			saves: [][]domain.CartItem{
				randomCartItems(3),
				randomCartItems(1),
			},
		},
		{
			name:    "save empty after items: ok",
			ownerID: gofakeit.UUID(),
			saves: [][]domain.CartItem{
				randomCartItems(2),
				nil,
			},
		},
		{
			name:      "save with empty owner ID: error",
			ownerID:   "",
			saves:     [][]domain.CartItem{randomCartItems(1)},
			wantError: "ownerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			var err error
			for _, items := range tt.saves {
				err = suite.repo.SaveCart(ctx, domain.Cart{OwnerID: tt.ownerID, Items: items})
				if tt.wantError != "" {
					break
				}
				require.NoError(t, err)
			}
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}

			cart, err := suite.repo.GetCart(ctx, tt.ownerID)
			require.NoError(t, err)

			assert.Equal(t, tt.ownerID, cart.OwnerID)
			assertCartItems(t, tt.saves[len(tt.saves)-1], cart.Items)
		})
	}
}

func (suite *cartContractSuite) TestOwnersAreIsolated() {
	t := suite.T()
	ctx := t.Context()

	first, second := gofakeit.UUID(), gofakeit.UUID()
	items := randomCartItems(2)

	require.NoError(t, suite.repo.SaveCart(ctx, domain.Cart{OwnerID: first, Items: items}))

	cart, err := suite.repo.GetCart(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = suite.repo.GetCart(ctx, first)
	require.NoError(t, err)
	assertCartItems(t, items, cart.Items)
}

func (suite *cartContractSuite) TestGetCartEmptyOwnerID() {
	_, err := suite.repo.GetCart(suite.T().Context(), "")
	suite.EqualError(err, "ownerID is empty")
}

func (suite *cartContractSuite) TestGetCorruptCart() {
	if suite.corrupt == nil {
		suite.T().Skip("backend cannot hold a corrupt value")
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{{{"},
		{name: "object instead of array", raw: `{"name":"Bagel"}`},
		{name: "zero quantity", raw: `[{"name":"Bagel","price":120,"qty":0}]`},
		{name: "negative price", raw: `[{"name":"Bagel","price":-1,"qty":1}]`},
		{name: "price exponent out of range", raw: `[{"name":"Bagel","price":1e20000000,"qty":1}]`},
		{name: "price is not a number", raw: `[{"name":"Bagel","price":"abc","qty":1}]`},
		{name: "duplicated name", raw: `[{"name":"Bagel","price":1,"qty":1},{"name":"Bagel","price":1,"qty":1}]`},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ownerID := gofakeit.UUID()

			suite.corrupt(ownerID, tt.raw)

			_, err := suite.repo.GetCart(t.Context(), ownerID)
			require.ErrorIs(t, err, domain.ErrCorruptState)
		})
	}
}

func randomCartItems(n int) []domain.CartItem {
	items := make([]domain.CartItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.CartItem{
			Name:      gofakeit.UUID(),
			UnitPrice: decimal.NewFromFloat(gofakeit.Price(1, 100)),
			Quantity:  gofakeit.IntRange(1, 10),
		})
	}
	return items
}

func assertCartItems(t *testing.T, expected, actual []domain.CartItem) {
	t.Helper()

	decimalComparer := cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	})

	if len(expected) == 0 {
		assert.Empty(t, actual)
		return
	}

	diff := cmp.Diff(expected, actual, decimalComparer)
	assert.Empty(t, diff)
}
