package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/utils"
	"github.com/example/foodshare/internal/validation"
)

// AuthService registers users and issues tokens.
type AuthService struct {
	store  store.Store
	secret string
	ttl    time.Duration
}

// NewAuthService creates an AuthService signing tokens with secret.
func NewAuthService(s store.Store, secret string, ttl time.Duration) *AuthService {
	return &AuthService{store: s, secret: secret, ttl: ttl}
}

// Session is a user with a freshly issued token.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        models.NormalizeEmail(in.Email),
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      in.Address,
		Organization: in.Organization,
	}
	if err := validation.ValidateStruct(user); err != nil {
		return nil, err
	}
	if len(in.Password) < utils.MinPasswordLength {
		return nil, validation.Errorf("password", "password must be at least %d characters", utils.MinPasswordLength)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(err, apperr.KindConflict, "email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	logging.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user registered")

	return s.session(user)
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	return s.session(user)
}

// User returns a user by id.
func (s *AuthService) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := utils.GenerateToken(s.secret, user.ID, string(user.Role), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}
