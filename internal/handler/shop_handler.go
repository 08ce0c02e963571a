package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fsanano/shopcart/internal/cart"
	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/model"
	"fsanano/shopcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	cookieName   = "shopcart"
	sessionIDKey = "sid"
)

type ShopHandler struct {
	users   *service.UserService
	shop    *service.ShopService
	cookies sessions.Store
	logger  *zap.Logger
}

// NewCookieStore returns the session cookie store. The cookie lives as long as
// the server keeps the session, past the cart TTL, so an expired cart is
// reported as 410 rather than 401.
func NewCookieStore(secret string, cartTTL time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = int(service.SessionLifetime(cartTTL).Seconds())
	return store
}

func NewShopHandler(users *service.UserService, shop *service.ShopService, cookies sessions.Store, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{users: users, shop: shop, cookies: cookies, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AddItemRequest struct {
	Shop     string `json:"shop"`
	Category string `json:"category"` // slug, display name or menu id
	Product  string `json:"product"`
	Quantity int    `json:"quantity"` // Optional, defaults to 1 if 0
}

type RemoveItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"` // Optional, defaults to 1 if 0
}

type CartResponse struct {
	Expired bool `json:"expired"`
	cart.Receipt
}

func (h *ShopHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *ShopHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.shop.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// A stale or tampered cookie just yields a new session.
	cookie, _ := h.cookies.Get(r, cookieName)
	if prev, ok := cookie.Values[sessionIDKey].(string); ok && prev != "" {
		_ = h.shop.Logout(prev)
	}
	cookie.Values[sessionIDKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		_ = h.shop.Logout(sess.ID)
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Name: sess.User.Name, Email: sess.User.Email})
}

func (h *ShopHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	_ = h.shop.Logout(sess.ID)

	cookie, _ := h.cookies.Get(r, cookieName)
	delete(cookie.Values, sessionIDKey)
	cookie.Options.MaxAge = -1
	if err := cookie.Save(r, w); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"shops": h.shop.Shops()})
}

func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	shop, err := url.PathUnescape(chi.URLParam(r, "shop"))
	if err != nil || !h.hasShop(shop) {
		http.Error(w, "shop not found", http.StatusNotFound)
		return
	}

	category, err := model.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shop":     shop,
		"category": category,
		"products": h.shop.Browse(shop, int(category)),
	})
}

func (h *ShopHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	receipt, err := h.shop.ViewCart(sess.ID)
	if errors.Is(err, cart.ErrCartExpired) {
		writeJSON(w, http.StatusGone, CartResponse{Expired: true})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CartResponse{Receipt: receipt})
}

func (h *ShopHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	category, err := model.ParseCategory(req.Category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Default quantity to 1 if not provided
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	sess := sessionFrom(r.Context())
	res, err := h.shop.AddToCart(sess.ID, req.Shop, category, req.Product, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *ShopHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req RemoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	sess := sessionFrom(r.Context())
	res, err := h.shop.RemoveFromCart(sess.ID, req.Product, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type sessionKey struct{}

// RequireSession resolves the cookie to a live shop session.
func (h *ShopHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := h.cookies.Get(r, cookieName)
		if err != nil {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		id, _ := cookie.Values[sessionIDKey].(string)
		sess, err := h.shop.Session(id)
		if err != nil {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) *service.Session {
	sess, _ := ctx.Value(sessionKey{}).(*service.Session)
	return sess
}

func (h *ShopHandler) hasShop(name string) bool {
	for _, s := range h.shop.Shops() {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (h *ShopHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusUnauthorized
	case errors.Is(err, catalog.ErrUnknownShop),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrNotInCart):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, cart.ErrInsufficientCartQuantity):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal server error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
