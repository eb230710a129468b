package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"github.com/nikolayk812/bakery-cart/internal/catalog"
	"github.com/nikolayk812/bakery-cart/internal/config"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"github.com/nikolayk812/bakery-cart/internal/repository"
	"github.com/nikolayk812/bakery-cart/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testShop = config.ShopConfig{
	Name:           "Test Bakery",
	Currency:       "INR",
	CurrencySymbol: "₹",
}

var testProducts = []config.ProductItem{
	{Name: "Croissant", Price: "150", Description: "Buttery"},
	{Name: "Bagel", Price: "120", Description: "Chewy"},
}

type cartResponse struct {
	Items []struct {
		Name      string `json:"name"`
		Price     string `json:"price"`
		Qty       int    `json:"qty"`
		LineTotal string `json:"line_total"`
	} `json:"items"`
	Count         int    `json:"count"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
	CheckoutState string `json:"checkout_state"`
}

// shopper replays the session cookie the way a browser would.
type shopper struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func newRouter(t *testing.T, repo port.CartRepository) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.New(testProducts)
	require.NoError(t, err)

	h, err := web.NewHandler(cat, testShop)
	require.NoError(t, err)

	return web.NewRouter(h, cartstore.NewSessions(repo, cartstore.SessionsConfig{}), zap.NewNop())
}

func newShopper(t *testing.T) *shopper {
	t.Helper()
	return &shopper{t: t, router: newRouter(t, repository.NewMemory())}
}

func (s *shopper) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	s.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "cart_session" {
			s.cookie = cookie
		}
	}
	return rec
}

func (s *shopper) post(target string, form url.Values) *httptest.ResponseRecorder {
	s.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return s.do(http.MethodPost, target, form)
}

func (s *shopper) add(name, price string) {
	s.t.Helper()
	rec := s.post("/cart/items", url.Values{"name": {name}, "price": {price}})
	require.Equal(s.t, http.StatusSeeOther, rec.Code)
}

func (s *shopper) cart() cartResponse {
	s.t.Helper()

	rec := s.do(http.MethodGet, "/api/cart", nil)
	require.Equal(s.t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSessionCookie(t *testing.T) {
	s := newShopper(t)

	rec := s.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.cookie)
	assert.NoError(t, uuid.Validate(s.cookie.Value))
	assert.True(t, s.cookie.HttpOnly)

	first := s.cookie.Value
	rec = s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, first, s.cookie.Value)
}

func TestMalformedSessionCookieIsReplaced(t *testing.T) {
	s := newShopper(t)
	s.cookie = &http.Cookie{Name: "cart_session", Value: "not-a-uuid"}

	s.do(http.MethodGet, "/", nil)

	assert.NoError(t, uuid.Validate(s.cookie.Value))
}

func TestCatalogPage(t *testing.T) {
	s := newShopper(t)

	rec := s.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Test Bakery")
	assert.Contains(t, body, "Croissant")
	assert.Contains(t, body, "₹150")
	assert.Contains(t, body, "Bagel")
	assert.Contains(t, body, `<span id="cartCount">0</span>`)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		wantLocation string
		wantCount    int
	}{
		{
			name:         "add with price: ok",
			form:         url.Values{"name": {"Croissant"}, "price": {"150"}},
			wantLocation: "/?item=Croissant&notice=added",
			wantCount:    1,
		},
		{
			name:         "add without price uses catalog: ok",
			form:         url.Values{"name": {"Bagel"}},
			wantLocation: "/?item=Bagel&notice=added",
			wantCount:    1,
		},
		{
			name:         "add with return path: ok",
			form:         url.Values{"name": {"Bagel"}, "price": {"120"}, "return": {"/cart"}},
			wantLocation: "/cart?item=Bagel&notice=added",
			wantCount:    1,
		},
		{
			name:         "add with foreign return path: redirect home",
			form:         url.Values{"name": {"Bagel"}, "price": {"120"}, "return": {"//example.com"}},
			wantLocation: "/?item=Bagel&notice=added",
			wantCount:    1,
		},
		{
			name:         "unknown product without price: error",
			form:         url.Values{"name": {"Baguette"}},
			wantLocation: "/?notice=invalid_item",
		},
		{
			name:         "negative price: error",
			form:         url.Values{"name": {"Bagel"}, "price": {"-1"}},
			wantLocation: "/?notice=invalid_item",
		},
		{
			name:         "huge price exponent: error",
			form:         url.Values{"name": {"Croissant"}, "price": {"1e20000000"}},
			wantLocation: "/?notice=invalid_item",
		},
		{
			name:         "price with three decimal places: error",
			form:         url.Values{"name": {"Croissant"}, "price": {"1.005"}},
			wantLocation: "/?notice=invalid_item",
		},
		{
			name:         "malformed price: error",
			form:         url.Values{"name": {"Bagel"}, "price": {"cheap"}},
			wantLocation: "/?notice=invalid_item",
		},
		{
			name:         "missing name: error",
			form:         url.Values{"price": {"1"}},
			wantLocation: "/?notice=invalid_item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newShopper(t)

			rec := s.post("/cart/items", tt.form)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))

			assert.Equal(t, tt.wantCount, s.cart().Count)
		})
	}
}

func TestAddItemNotice(t *testing.T) {
	s := newShopper(t)

	rec := s.post("/cart/items", url.Values{"name": {"Croissant"}, "price": {"150"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = s.do(http.MethodGet, rec.Header().Get("Location"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Croissant added to cart!")
	assert.Contains(t, body, `<span id="cartCount">1</span>`)
}

func TestAddedNoticeIgnoresUnknownItem(t *testing.T) {
	s := newShopper(t)

	target := "/?" + url.Values{
		"notice": {"added"},
		"item":   {"Free cake for everyone, call 555-0100"},
	}.Encode()
	rec := s.do(http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Free cake for everyone")
	assert.NotContains(t, rec.Body.String(), "added to cart!")

	// an item already in the cart is shown even when it is not a catalog product
	s.add("Rye Loaf", "210")
	rec = s.do(http.MethodGet, "/?notice=added&item=Rye+Loaf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rye Loaf added to cart!")
}

func TestSessionsStayBounded(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cat, err := catalog.New(testProducts)
	require.NoError(t, err)
	h, err := web.NewHandler(cat, testShop)
	require.NoError(t, err)

	sessions := cartstore.NewSessions(repository.NewMemory(), cartstore.SessionsConfig{MaxStores: 5})
	router := web.NewRouter(h, sessions, zap.NewNop())

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 5, sessions.Len())
}

func TestCartScenario(t *testing.T) {
	s := newShopper(t)

	s.add("Croissant", "150")
	s.add("Croissant", "150")
	s.add("Bagel", "120")

	cart := s.cart()
	assert.Equal(t, 3, cart.Count)
	assert.Equal(t, "₹420", cart.Total)
	assert.Equal(t, "INR", cart.Currency)
	assert.Equal(t, "pending", cart.CheckoutState)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "Croissant", cart.Items[0].Name)
	assert.Equal(t, 2, cart.Items[0].Qty)
	assert.Equal(t, "300", cart.Items[0].LineTotal)
	assert.Equal(t, "Bagel", cart.Items[1].Name)

	rec := s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span id="totalPrice">₹420</span>`)
	assert.Contains(t, rec.Body.String(), `<span id="cartCount">3</span>`)
}

func TestCartItemControls(t *testing.T) {
	s := newShopper(t)

	s.add("Croissant", "150")
	s.add("Bagel", "120")

	rec := s.post("/cart/items/increment", url.Values{"name": {"Bagel"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.Equal(t, 3, s.cart().Count)

	rec = s.post("/cart/items/decrement", url.Values{"name": {"Croissant"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	cart := s.cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Bagel", cart.Items[0].Name)
	assert.Equal(t, 2, cart.Items[0].Qty)

	rec = s.post("/cart/items/remove", url.Values{"name": {"Bagel"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, s.cart().Count)

	rec = s.post("/cart/items/decrement", url.Values{"name": {"Bagel"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart?notice=unknown_item", rec.Header().Get("Location"))

	rec = s.post("/cart/items/increment", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart?notice=unknown_item", rec.Header().Get("Location"))
}

func TestClearCart(t *testing.T) {
	s := newShopper(t)

	s.add("Croissant", "150")
	s.add("Bagel", "120")

	rec := s.post("/cart/clear", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))

	cart := s.cart()
	assert.Zero(t, cart.Count)
	assert.Equal(t, "₹0", cart.Total)

	rec = s.do(http.MethodGet, "/cart", nil)
	assert.Contains(t, rec.Body.String(), "Your cart is empty.")
}

func TestDirectCheckout(t *testing.T) {
	t.Run("empty cart: rejected", func(t *testing.T) {
		s := newShopper(t)

		rec := s.post("/cart/checkout", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/cart?notice=cart_empty", rec.Header().Get("Location"))

		rec = s.do(http.MethodGet, rec.Header().Get("Location"), nil)
		assert.Contains(t, rec.Body.String(), "Your cart is empty!")
		assert.Equal(t, "pending", s.cart().CheckoutState)
	})

	t.Run("cart with items: confirmed", func(t *testing.T) {
		s := newShopper(t)
		s.add("Croissant", "150")

		rec := s.post("/cart/checkout", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?notice=thank_you", rec.Header().Get("Location"))

		cart := s.cart()
		assert.Zero(t, cart.Count)
		assert.Equal(t, "confirmed", cart.CheckoutState)

		rec = s.do(http.MethodGet, "/?notice=thank_you", nil)
		assert.Contains(t, rec.Body.String(), "Thank you for your order!")
	})
}

func TestSubmitCheckout(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		wantLocation string
		wantState    string
		wantCount    int
	}{
		{
			name: "all fields: order placed",
			form: url.Values{
				"full_name": {"Ada Lovelace"},
				"address":   {"12 St James's Square"},
				"phone":     {"+44 20 7946 0000"},
			},
			wantLocation: "/?notice=order_placed",
			wantState:    "confirmed",
		},
		{
			name: "missing phone: rejected",
			form: url.Values{
				"full_name": {"Ada Lovelace"},
				"address":   {"12 St James's Square"},
			},
			wantLocation: "/checkout?notice=shipping_required",
			wantState:    "pending",
			wantCount:    2,
		},
		{
			name:         "blank form: rejected",
			form:         url.Values{},
			wantLocation: "/checkout?notice=shipping_required",
			wantState:    "pending",
			wantCount:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newShopper(t)
			s.add("Croissant", "150")
			s.add("Croissant", "150")

			rec := s.do(http.MethodGet, "/checkout", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "Croissant x 2")
			assert.Contains(t, rec.Body.String(), "₹300")

			rec = s.post("/checkout", tt.form)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))

			cart := s.cart()
			assert.Equal(t, tt.wantState, cart.CheckoutState)
			assert.Equal(t, tt.wantCount, cart.Count)
		})
	}
}

func TestSubmitCheckoutEmptyCart(t *testing.T) {
	s := newShopper(t)

	rec := s.post("/checkout", url.Values{
		"full_name": {"Ada Lovelace"},
		"address":   {"12 St James's Square"},
		"phone":     {"+44 20 7946 0000"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=order_placed", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/?notice=order_placed", nil)
	assert.Contains(t, rec.Body.String(), "Your order has been placed successfully.")
}

func TestShoppersAreIsolated(t *testing.T) {
	router := newRouter(t, repository.NewMemory())
	alice := &shopper{t: t, router: router}
	bob := &shopper{t: t, router: router}

	alice.add("Croissant", "150")

	assert.Equal(t, 1, alice.cart().Count)
	assert.Zero(t, bob.cart().Count)
	assert.NotEqual(t, alice.cookie.Value, bob.cookie.Value)
}

func TestCartSurvivesRestart(t *testing.T) {
	repo := repository.NewMemory()

	before := &shopper{t: t, router: newRouter(t, repo)}
	before.add("Croissant", "150")
	before.add("Bagel", "120")

	after := &shopper{t: t, router: newRouter(t, repo), cookie: before.cookie}

	cart := after.cart()
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, "₹270", cart.Total)
}

type brokenRepository struct {
	getErr  error
	saveErr error
}

func (r brokenRepository) GetCart(_ context.Context, ownerID string) (domain.Cart, error) {
	if r.getErr != nil {
		return domain.Cart{}, r.getErr
	}
	return domain.Cart{OwnerID: ownerID}, nil
}

func (r brokenRepository) SaveCart(context.Context, domain.Cart) error {
	return r.saveErr
}

func TestStorageFailures(t *testing.T) {
	t.Run("save fails: server error", func(t *testing.T) {
		s := &shopper{t: t, router: newRouter(t, brokenRepository{saveErr: errors.New("disk full")})}

		rec := s.post("/cart/items", url.Values{"name": {"Croissant"}, "price": {"150"}})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Something went wrong, please try again.", rec.Body.String())
		assert.Zero(t, s.cart().Count)
	})

	t.Run("corrupt state: empty cart", func(t *testing.T) {
		s := &shopper{t: t, router: newRouter(t, brokenRepository{getErr: domain.ErrCorruptState})}

		assert.Zero(t, s.cart().Count)
	})

	t.Run("load fails: server error", func(t *testing.T) {
		s := &shopper{t: t, router: newRouter(t, brokenRepository{getErr: errors.New("connection refused")})}

		rec := s.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := newShopper(t)

	rec := s.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Nil(t, s.cookie)
}

func TestRequestIDHeader(t *testing.T) {
	s := newShopper(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/healthz", nil)
	assert.NoError(t, uuid.Validate(rec.Header().Get("X-Request-ID")))
}
