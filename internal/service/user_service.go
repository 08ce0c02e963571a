package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fsanano/shopcart/internal/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidUser        = errors.New("invalid user")
)

// UserRepository persists registered users.
type UserRepository interface {
	LoadUsers(ctx context.Context) ([]model.User, error)
	SaveUser(ctx context.Context, user model.User) error
}

type UserService struct {
	repo     UserRepository
	logger   *zap.Logger
	hashCost int // 0 stores passwords as given

	mu    sync.RWMutex
	users []model.User
}

func NewUserService(repo UserRepository, hashPasswords bool, logger *zap.Logger) *UserService {
	s := &UserService{repo: repo, logger: logger}
	if hashPasswords {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

// Load replaces the in-memory list with what the repository holds.
func (s *UserService) Load(ctx context.Context) (int, error) {
	users, err := s.repo.LoadUsers(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()

	s.logger.Info("users loaded", zap.Int("count", len(users)))
	return len(users), nil
}

type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
}

// Register adds a user and persists it. Email addresses are not required to
// be unique.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if in.Age < 0 {
		return model.User{}, fmt.Errorf("%w: age must not be negative", ErrInvalidUser)
	}
	if strings.TrimSpace(in.Email) == "" {
		return model.User{}, fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if in.Password == "" {
		return model.User{}, fmt.Errorf("%w: password is required", ErrInvalidUser)
	}

	password := in.Password
	if s.hashCost > 0 {
		hash, err := bcrypt.GenerateFromPassword(bcryptInput(in.Password), s.hashCost)
		if err != nil {
			return model.User{}, fmt.Errorf("%w: %v", ErrInvalidUser, err)
		}
		password = string(hash)
	}

	user := model.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    password,
		PhoneNumber: in.PhoneNumber,
		Age:         in.Age,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveUser(ctx, user); err != nil {
		return model.User{}, err
	}
	s.users = append(s.users, user)

	s.logger.Info("user registered", zap.String("email", user.Email))
	return user, nil
}

// Authenticate returns the first user whose email matches ignoring case and
// whose password matches exactly.
func (s *UserService) Authenticate(email, password string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) && passwordMatches(u.Password, password) {
			return u, nil
		}
	}
	return model.User{}, ErrInvalidCredentials
}

func (s *UserService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func passwordMatches(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), bcryptInput(given)) == nil
	}
	return stored == given
}

// bcryptMaxInput is the longest password bcrypt accepts.
const bcryptMaxInput = 72

// bcryptInput passes short passwords through unchanged. Longer ones are
// reduced to a base64 SHA-256 digest, which fits bcrypt's limit.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func isBcryptHash(s string) bool {
	return len(s) == 60 &&
		(strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
