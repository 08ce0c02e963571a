package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fsanano/shopcart/internal/cart"
	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/handler"
	"fsanano/shopcart/internal/repository"
	"fsanano/shopcart/internal/service"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	shop    *service.ShopService
	cookies []*http.Cookie
}

func setupServer(t *testing.T, opts ...cart.Option) *testServer {
	t.Helper()

	repo := repository.NewUserFileRepository(filepath.Join(t.TempDir(), "users.txt"), nil)
	users := service.NewUserService(repo, false, zap.NewNop())
	_, err := users.Load(context.Background())
	require.NoError(t, err)

	c, err := catalog.Default()
	require.NoError(t, err)

	shop := service.NewShopService(c, users, zap.NewNop(), opts...)
	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	shopHandler := handler.NewShopHandler(users, shop, store, zap.NewNop())

	return &testServer{t: t, handler: handler.NewHandler(shopHandler, zap.NewNop()), shop: shop}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *testServer) signUpAndLogin() {
	s.t.Helper()

	w := s.do(http.MethodPost, "/v1/users", map[string]any{
		"name": "Test User", "email": "test@example.com", "password": "pw", "phone_number": "555", "age": 30,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/sessions", map[string]any{"email": "TEST@example.com", "password": "pw"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := setupServer(t)
	w := s.do(http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRegister_Invalid(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodPost, "/v1/users", map[string]any{"email": "a@b.c", "password": "pw", "age": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()

	s.cookies = nil
	w := s.do(http.MethodPost, "/v1/sessions", map[string]any{"email": "test@example.com", "password": "PW"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRequiresSession(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/cart/items", map[string]any{"shop": "Puma", "category": "clothing", "product": "Puma Jacket"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBrowse(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/v1/shops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Puma", "Adidas"}, decode(t, w)["shops"])

	w = s.do(http.MethodGet, "/v1/shops/Puma/categories/footwear/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "footwear", body["category"])
	products := body["products"].([]any)
	require.Len(t, products, 2)
	assert.Equal(t, "Puma Sneaker V2", products[0].(map[string]any)["name"])

	w = s.do(http.MethodGet, "/v1/shops/Puma/categories/7/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["products"])

	w = s.do(http.MethodGet, "/v1/shops/Puma/categories/12/products", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/shops/Nike/categories/1/products", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartFlow(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()

	w := s.do(http.MethodPost, "/v1/cart/items", map[string]any{
		"shop": "Puma", "category": "electronics", "product": "Puma Smartwatch", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 8, decode(t, w)["available"])

	w = s.do(http.MethodPost, "/v1/cart/items", map[string]any{
		"shop": "Adidas", "category": "Beauty Products", "product": "adidas perfume",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["expired"])
	assert.Len(t, body["lines"], 2)
	// 2 x 3149.1 + 1599.2 = 7897.4, plus 10% tax
	assert.Equal(t, "7897.4", body["subtotal"])
	assert.Equal(t, "789.74", body["tax"])
	assert.Equal(t, "8687.14", body["total"])

	w = s.do(http.MethodPost, "/v1/cart/items/remove", map[string]any{"product": "Puma Smartwatch", "quantity": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/v1/cart/items/remove", map[string]any{"product": "Puma Jacket"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/cart/items/remove", map[string]any{"product": "Puma Smartwatch", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["remaining"])

	w = s.do(http.MethodGet, "/v1/shops/Puma/categories/electronics/products", nil)
	products := decode(t, w)["products"].([]any)
	assert.EqualValues(t, 10, products[0].(map[string]any)["available_quantity"])
}

func TestAddItem_Errors(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"insufficient stock", map[string]any{"shop": "Puma", "category": "1", "product": "Puma Wireless Earbuds", "quantity": 6}, http.StatusConflict},
		{"unknown product", map[string]any{"shop": "Puma", "category": "1", "product": "Puma Phone"}, http.StatusNotFound},
		{"unknown shop", map[string]any{"shop": "Nike", "category": "1", "product": "Air"}, http.StatusNotFound},
		{"bad category", map[string]any{"shop": "Puma", "category": "gadgets", "product": "Puma Smartwatch"}, http.StatusBadRequest},
		{"negative quantity", map[string]any{"shop": "Puma", "category": "1", "product": "Puma Smartwatch", "quantity": -1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/v1/cart/items", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestLogout(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()
	stale := s.cookies

	w := s.do(http.MethodDelete, "/v1/sessions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.cookies = stale
	w = s.do(http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()
	first := s.cookies
	require.Equal(t, 1, s.shop.SessionCount())

	w := s.do(http.MethodPost, "/v1/sessions", map[string]any{"email": "test@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.shop.SessionCount())

	w = s.do(http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.cookies = first
	w = s.do(http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a second client keeps its own session
	s.cookies = nil
	w = s.do(http.MethodPost, "/v1/sessions", map[string]any{"email": "test@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.shop.SessionCount())
}

func TestExpiredCartReportedWhileCookieLives(t *testing.T) {
	const ttl = time.Minute
	store := handler.NewCookieStore("test-secret-key-32-bytes-long!!!", ttl)
	assert.Greater(t, store.Options.MaxAge, int(ttl.Seconds()))

	now := time.Now()
	s := setupServer(t, cart.WithTTL(ttl), cart.WithClock(func() time.Time { return now }))
	s.signUpAndLogin()

	now = now.Add(ttl + time.Second)
	require.Less(t, (ttl + time.Second).Seconds(), float64(store.Options.MaxAge))

	w := s.do(http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, true, decode(t, w)["expired"])
}

func TestBrotliResponse(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/shops", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))

	data, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.JSONEq(t, `{"shops":["Puma","Adidas"]}`, string(data))
}

func TestConcurrentSessionsShareStock(t *testing.T) {
	s := setupServer(t)
	s.signUpAndLogin()

	const shoppers = 20
	var wg sync.WaitGroup
	codes := make(chan int, shoppers)

	for i := 0; i < shoppers; i++ {
		// each shopper is a separate client without a cookie
		s.cookies = nil
		w := s.do(http.MethodPost, "/v1/sessions", map[string]any{"email": "test@example.com", "password": "pw"})
		require.Equal(t, http.StatusOK, w.Code)
		cookies := s.cookies

		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(map[string]any{"shop": "Adidas", "category": "home_appliances", "product": "Adidas Vacuum Cleaner"})
			req := httptest.NewRequest(http.MethodPost, "/v1/cart/items", bytes.NewBuffer(body))
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	ok, conflict := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, shoppers-5, conflict)
}
