package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const badCredentialsMessage = "incorrect email or password"

type TokenManager interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (*auth.Claims, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AccountService struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	tokens TokenManager
	hasher PasswordHasher
	log    *zap.Logger
}

func NewAccountService(users repository.UserRepository, orders repository.OrderRepository, tokens TokenManager, hasher PasswordHasher, log *zap.Logger) *AccountService {
	return &AccountService{
		users:  users,
		orders: orders,
		tokens: tokens,
		hasher: hasher,
		log:    log,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, validationError("firstName, lastName, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, validationError("email is invalid")
	}
	log := logger.WithContext(ctx, s.log)

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error("hash password failed", zap.Error(err))
		return nil, internalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, &Error{Kind: KindConflict, Message: "user with this email already exists"}
	}
	if err != nil {
		log.Error("create user failed", zap.Error(err))
		return nil, internalError(err)
	}

	return s.issue(ctx, user)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validationError("email and password are required")
	}
	log := logger.WithContext(ctx, s.log)

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, &Error{Kind: KindUnauthorized, Message: badCredentialsMessage}
	}
	if err != nil {
		log.Error("find user failed", zap.Error(err))
		return nil, internalError(err)
	}

	err = s.hasher.Compare(user.PasswordHash, password)
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return nil, &Error{Kind: KindUnauthorized, Message: badCredentialsMessage}
	}
	if err != nil {
		log.Error("compare password failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, internalError(err)
	}

	return s.issue(ctx, user)
}

// Authenticate resolves a bearer token to the id of an existing user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", &Error{Kind: KindUnauthorized, Message: "invalid token", Err: err}
	}

	user, err := s.users.FindUserByEmail(ctx, claims.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", &Error{Kind: KindUnauthorized, Message: "user not found"}
	}
	if err != nil {
		logger.WithContext(ctx, s.log).Error("find user for token failed", zap.Error(err))
		return "", internalError(err)
	}
	return user.ID, nil
}

// MyOrders lists the user's orders, newest first.
func (s *AccountService) MyOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}

	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("list orders failed", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError(err)
	}
	return orders, nil
}

func (s *AccountService) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("issue token failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, internalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
