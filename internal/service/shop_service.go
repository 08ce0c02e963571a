package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fsanano/shopcart/internal/cart"
	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionLifetime is how long a session is kept after login. It outlives the
// cart TTL so an expired cart can still be reported as expired.
func SessionLifetime(cartTTL time.Duration) time.Duration {
	return 2 * cartTTL
}

// Session is one logged-in user with the cart created at login.
type Session struct {
	ID        string
	User      model.User
	Cart      *cart.Cart
	StartedAt time.Time
}

type ShopService struct {
	catalog  *catalog.Catalog
	users    *UserService
	cartOpts []cart.Option
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewShopService(c *catalog.Catalog, users *UserService, logger *zap.Logger, cartOpts ...cart.Option) *ShopService {
	return &ShopService{
		catalog:  c,
		users:    users,
		cartOpts: cartOpts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Login authenticates the user and opens a session with a fresh cart.
func (s *ShopService) Login(email, password string) (*Session, error) {
	user, err := s.users.Authenticate(email, password)
	if err != nil {
		s.logger.Info("login failed", zap.String("email", email))
		return nil, err
	}

	c := cart.New(s.catalog, s.cartOpts...)
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Cart:      c,
		StartedAt: c.CreatedAt(),
	}

	s.mu.Lock()
	evicted := s.evictStale(sess.StartedAt, SessionLifetime(c.TTL()))
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("stale sessions evicted", zap.Int("count", evicted))
	}
	s.logger.Info("login", zap.String("session", sess.ID), zap.String("email", user.Email))
	return sess, nil
}

// Logout drops the session and its cart. Stock held by the cart is not
// returned to the catalog.
func (s *ShopService) Logout(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)

	s.logger.Info("logout", zap.String("session", id))
	return nil
}

// evictStale drops sessions started more than lifetime before now. Stock held
// by their carts is not restored, same as Logout. Callers hold s.mu.
func (s *ShopService) evictStale(now time.Time, lifetime time.Duration) int {
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.StartedAt) > lifetime {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// SessionCount reports how many sessions are open.
func (s *ShopService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ShopService) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ShopService) Shops() []string {
	return s.catalog.ShopNames()
}

// Browse lists a shop's products for a category id. Out-of-range ids give an
// empty list.
func (s *ShopService) Browse(shop string, categoryID int) []model.Product {
	return s.catalog.ProductsByCategory(shop, categoryID)
}

func (s *ShopService) AddToCart(sessionID, shop string, category model.Category, productName string, quantity int) (cart.AddResult, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return cart.AddResult{}, err
	}

	ref, _, err := s.catalog.FindProduct(shop, category, productName)
	if err != nil {
		return cart.AddResult{}, err
	}

	res, err := sess.Cart.Add(ref, quantity)
	if err != nil {
		s.logger.Info("add to cart rejected",
			zap.String("session", sessionID), zap.Stringer("product", ref), zap.Int("quantity", quantity), zap.Error(err))
		return res, err
	}

	s.logger.Info("added to cart",
		zap.String("session", sessionID), zap.Stringer("product", ref), zap.Int("quantity", quantity), zap.Int("available", res.Available))
	return res, nil
}

func (s *ShopService) RemoveFromCart(sessionID, productName string, quantity int) (cart.RemoveResult, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return cart.RemoveResult{}, err
	}

	res, err := sess.Cart.Remove(productName, quantity)
	if err != nil {
		s.logger.Info("remove from cart rejected",
			zap.String("session", sessionID), zap.String("product", productName), zap.Int("quantity", quantity), zap.Error(err))
		return res, err
	}

	s.logger.Info("removed from cart",
		zap.String("session", sessionID), zap.String("product", productName), zap.Int("quantity", quantity))
	return res, nil
}

func (s *ShopService) ViewCart(sessionID string) (cart.Receipt, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return cart.Receipt{}, err
	}

	receipt, err := sess.Cart.View()
	if err != nil {
		if errors.Is(err, cart.ErrCartExpired) {
			s.logger.Info("expired cart viewed",
				zap.String("session", sessionID), zap.Time("created_at", sess.Cart.CreatedAt()))
			return receipt, err
		}
		return receipt, fmt.Errorf("failed to view cart: %w", err)
	}
	return receipt, nil
}
